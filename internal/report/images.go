package report

import (
	"fmt"
	"path/filepath"

	"markscan/constants"
	"markscan/internal/entity"
	"markscan/internal/imaging"
)

// WriteAnnotatedImages writes the labelled copy of every successfully
// processed sheet: a red dot and square on each matched reference point
// and a red square around each crossed box. Returns the number of
// images written; skipped and failed sheets produce no image.
func (w *Writer) WriteAnnotatedImages(sheets []*entity.Sheet, outDir string) (int, error) {
	written := 0
	for _, s := range sheets {
		if s.Status != constants.SheetStatusOK {
			continue
		}
		if err := w.writeAnnotated(s, outDir); err != nil {
			return written, fmt.Errorf("annotate %s: %w", s.Name(), err)
		}
		written++
	}
	w.logger.Info("report.images.ok", "dir", outDir, "written", written)
	return written, nil
}

func (w *Writer) writeAnnotated(s *entity.Sheet, outDir string) error {
	img, err := imaging.Load(s.Path)
	if err != nil {
		return err
	}
	rgba := imaging.ToRGBA(img)

	for _, p := range s.MatchedPoints {
		imaging.MarkPoint(rgba, p, w.pointRadius)
	}
	for _, b := range s.Boxes {
		if b.Label == constants.LabelCrossed {
			imaging.MarkArea(rgba, b.Center, w.boxRadius)
		}
	}

	out := filepath.Join(outDir, s.Stem()+"_labelled"+s.Ext())
	return imaging.Save(out, rgba)
}

// Package pipeline runs one questionnaire scan through the full chain:
// load, align against the template, crop every answer box, classify
// each crop. Each sheet is processed independently; failures flag the
// sheet instead of aborting the batch.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"markscan/constants"
	"markscan/internal/align"
	"markscan/internal/classify"
	"markscan/internal/common"
	"markscan/internal/entity"
	"markscan/internal/imaging"
	"markscan/internal/template"
)

// Processor coordinates alignment, box extraction and classification
// for single sheets.
type Processor struct {
	Logger     *slog.Logger
	Tpl        *template.Template
	Aligner    *align.Aligner
	Classifier *classify.Classifier
	CropRadius int
}

func NewProcessor(logger *slog.Logger, tpl *template.Template, aligner *align.Aligner, cls *classify.Classifier, cropRadius int) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Tpl: tpl, Aligner: aligner, Classifier: cls, CropRadius: cropRadius}
}

// ProcessSheet runs the per-image chain and always returns a sheet; the
// Status field says whether it was classified, skipped (alignment) or
// failed (decode/I-O). Box extraction is deterministic once alignment
// succeeds.
func (p *Processor) ProcessSheet(ctx context.Context, path string) *entity.Sheet {
	sheet := &entity.Sheet{ID: uuid.New(), Path: path}
	log := p.Logger.With("sheet_id", sheet.ID, "path", path, "run_id", common.RunIDFromContext(ctx))

	img, err := imaging.Load(path)
	if err != nil {
		sheet.Status = constants.SheetStatusFailed
		sheet.Reason = err.Error()
		log.Error("processor.load.failed", "error", err)
		return sheet
	}
	gray := imaging.ToGray(img)

	res, err := p.Aligner.Align(gray)
	if err != nil {
		if errors.Is(err, common.ErrAlignment) {
			sheet.Status = constants.SheetStatusSkipped
			sheet.Reason = err.Error()
			log.Warn("processor.align.skipped", "reason", err)
		} else {
			sheet.Status = constants.SheetStatusFailed
			sheet.Reason = err.Error()
			log.Error("processor.align.failed", "error", err)
		}
		return sheet
	}
	for _, m := range res.Matches {
		sheet.MatchedPoints = append(sheet.MatchedPoints, m.Found)
	}

	side := p.Classifier.SampleSide()
	for _, id := range p.Tpl.Boxes() {
		if ctx.Err() != nil {
			sheet.Status = constants.SheetStatusFailed
			sheet.Reason = ctx.Err().Error()
			log.Error("processor.canceled", "error", ctx.Err())
			return sheet
		}

		tplCenter, err := p.Tpl.BoxCenter(id.Question, id.Option)
		if err != nil {
			sheet.Status = constants.SheetStatusFailed
			sheet.Reason = err.Error()
			return sheet
		}
		center := res.Transform.Apply(tplCenter)

		sample := imaging.Resize(imaging.CropAround(gray, center, p.CropRadius), side, side)
		pred, err := p.Classifier.Predict(sample)
		if err != nil {
			sheet.Status = constants.SheetStatusFailed
			sheet.Reason = err.Error()
			log.Error("processor.classify.failed", "box", id.String(), "error", err)
			return sheet
		}

		sheet.Boxes = append(sheet.Boxes, entity.BoxResult{
			Question:   id.Question,
			Option:     id.Option,
			Label:      pred.Label,
			Confidence: pred.Confidence,
			Center:     center,
		})
	}

	sheet.Status = constants.SheetStatusOK
	crossed, empty := sheet.Tally()
	log.Info("processor.sheet.ok",
		"matched_points", len(sheet.MatchedPoints),
		"crossed", crossed,
		"empty", empty,
	)
	return sheet
}

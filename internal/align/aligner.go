// Package align locates the reference points of significance on a
// scanned questionnaire and estimates the affine map from template
// coordinates into scan coordinates.
package align

import (
	"fmt"
	"image"
	"log/slog"

	"markscan/internal/common"
	"markscan/internal/geometry"
	"markscan/internal/imaging"
	"markscan/internal/template"
)

// Config tunes the point search.
type Config struct {
	// SearchRadius bounds the window, in pixels, around each point's
	// template position in which its mark is searched.
	SearchRadius int
	// MatchThreshold is the minimum fraction of agreeing mask pixels
	// for a placement to count as a match.
	MatchThreshold float64
	// MinMatchPoints is the number of matched points required to fit
	// the affine map.
	MinMatchPoints int
}

// Match pairs a template point of significance with the position found
// on the scan.
type Match struct {
	Reference geometry.Pixel
	Found     geometry.Pixel
	Score     float64
}

// Result is a successful alignment.
type Result struct {
	Transform geometry.Affine
	Matches   []Match
}

// Aligner matches a scan against one template.
type Aligner struct {
	tpl    *template.Template
	cfg    Config
	logger *slog.Logger
}

func New(tpl *template.Template, cfg Config, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{tpl: tpl, cfg: cfg, logger: logger}
}

// Align binarizes the scan, locates every template point of
// significance by sliding its mask over a bounded window, and fits the
// affine map over the matches. Sheets whose marks cannot be located
// confidently yield common.ErrAlignment so the batch can skip them.
func (a *Aligner) Align(scan *image.Gray) (*Result, error) {
	bin := imaging.Binarize(scan, a.tpl.BinThreshold)

	var matches []Match
	for _, pt := range a.tpl.Points {
		m, ok := a.locate(bin, pt)
		if !ok {
			a.logger.Debug("align.point.unmatched", "point", pt.At.String(), "best_score", m.Score)
			continue
		}
		matches = append(matches, m)
	}

	if len(matches) < a.cfg.MinMatchPoints {
		return nil, common.NewAppError("ALIGN_ERROR",
			fmt.Sprintf("matched %d of %d points of significance, need %d",
				len(matches), len(a.tpl.Points), a.cfg.MinMatchPoints),
			common.ErrAlignment)
	}

	src := make([]geometry.Pixel, len(matches))
	dst := make([]geometry.Pixel, len(matches))
	for i, m := range matches {
		src[i] = m.Reference
		dst[i] = m.Found
	}
	tr, err := geometry.FitAffine(src, dst)
	if err != nil {
		return nil, common.NewAppError("ALIGN_ERROR", "affine fit failed", common.ErrAlignment)
	}

	return &Result{Transform: tr, Matches: matches}, nil
}

// locate slides the point's mask over the search window and returns the
// best-scoring placement. The second return reports whether the score
// clears the match threshold.
func (a *Aligner) locate(bin *image.Gray, pt template.ReferencePoint) (Match, bool) {
	best := Match{Reference: pt.At, Score: -1}
	r := a.cfg.SearchRadius

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c := geometry.Pixel{X: pt.At.X + dx, Y: pt.At.Y + dy}
			s := maskScore(bin, pt.Mask, c)
			if s > best.Score {
				best.Score = s
				best.Found = c
			}
		}
	}
	return best, best.Score >= a.cfg.MatchThreshold
}

// maskScore measures how well the mask's mark matches the binarized
// scan when centered on c: the intersection of black pixels over their
// union. Marks are sparse against the paper, so scoring only black
// pixels keeps a blank scan near zero; raw pixel agreement would let
// the shared white background alone clear the match threshold. Pixels
// outside the scan count as white paper.
func maskScore(bin *image.Gray, mask *image.Gray, c geometry.Pixel) float64 {
	mb := mask.Bounds()
	radius := mb.Dx() / 2

	sb := bin.Bounds()
	inter, union := 0, 0
	for my := 0; my < mb.Dy(); my++ {
		sy := c.Y - radius + my
		for mx := 0; mx < mb.Dx(); mx++ {
			sx := c.X - radius + mx
			sv := imaging.GrayWhite
			if sx >= sb.Min.X && sx < sb.Max.X && sy >= sb.Min.Y && sy < sb.Max.Y {
				sv = bin.GrayAt(sx, sy).Y
			}
			mv := mask.GrayAt(mb.Min.X+mx, mb.Min.Y+my).Y

			if mv == imaging.GrayBlack && sv == imaging.GrayBlack {
				inter++
			}
			if mv == imaging.GrayBlack || sv == imaging.GrayBlack {
				union++
			}
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

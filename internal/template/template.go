// Package template holds the reference questionnaire: the points of
// significance used to align a scan and the grid of answer-box centers
// used to crop samples. A template is loaded once per run and treated
// as immutable, so box identifiers are stable across the whole batch.
package template

import (
	"fmt"
	"image"

	"markscan/internal/geometry"
)

// ReferencePoint is a point of significance on the reference sheet
// together with its binarized mask, a square patch cut around the point
// used to locate the matching mark on a scan.
type ReferencePoint struct {
	At   geometry.Pixel
	Mask *image.Gray
}

// BoxID identifies one answer box on the template. Question and Option
// are 1-based, matching the reference sheets.
type BoxID struct {
	Question int
	Option   int
}

func (id BoxID) String() string {
	return fmt.Sprintf("q%d/o%d", id.Question, id.Option)
}

// Template is the immutable description of the reference questionnaire.
type Template struct {
	Points    []ReferencePoint
	Questions int
	Options   int

	// MarkRadius is the mask radius around each point of significance.
	MarkRadius int
	// BinThreshold separates mark pixels from paper when binarizing.
	BinThreshold uint8

	centers [][]geometry.Pixel
}

// New assembles a template from already-loaded parts. centers is
// indexed [question][option], 0-based; every question must define the
// same number of options.
func New(points []ReferencePoint, centers [][]geometry.Pixel, markRadius int, binThreshold uint8) (*Template, error) {
	if len(centers) == 0 || len(centers[0]) == 0 {
		return nil, fmt.Errorf("template defines no boxes")
	}
	options := len(centers[0])
	for q, line := range centers {
		if len(line) != options {
			return nil, fmt.Errorf("question %d defines %d options, want %d", q+1, len(line), options)
		}
	}
	return &Template{
		Points:       points,
		Questions:    len(centers),
		Options:      options,
		MarkRadius:   markRadius,
		BinThreshold: binThreshold,
		centers:      centers,
	}, nil
}

// BoxCount returns the number of answer boxes the template defines.
func (t *Template) BoxCount() int {
	return t.Questions * t.Options
}

// BoxCenter returns the template-space center pixel of a box.
// Question and option numbers are 1-based.
func (t *Template) BoxCenter(question, option int) (geometry.Pixel, error) {
	if question < 1 || question > t.Questions {
		return geometry.Pixel{}, fmt.Errorf("question %d out of range [1, %d]", question, t.Questions)
	}
	if option < 1 || option > t.Options {
		return geometry.Pixel{}, fmt.Errorf("option %d out of range [1, %d]", option, t.Options)
	}
	return t.centers[question-1][option-1], nil
}

// Boxes iterates all box IDs in question-major order.
func (t *Template) Boxes() []BoxID {
	ids := make([]BoxID, 0, t.BoxCount())
	for q := 1; q <= t.Questions; q++ {
		for o := 1; o <= t.Options; o++ {
			ids = append(ids, BoxID{Question: q, Option: o})
		}
	}
	return ids
}

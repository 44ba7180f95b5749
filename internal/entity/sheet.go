package entity

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"markscan/constants"
	"markscan/internal/geometry"
)

// BoxResult is one classified answer box for data transfer between layers.
type BoxResult struct {
	Question   int             `json:"question"`
	Option     int             `json:"option"`
	Label      constants.Label `json:"label"`
	Confidence float64         `json:"confidence"`
	Center     geometry.Pixel  `json:"center"` // scan-space center of the box
}

// Sheet is one processed questionnaire scan.
type Sheet struct {
	ID            uuid.UUID             `json:"id"`
	Path          string                `json:"path"`
	Status        constants.SheetStatus `json:"status"`
	Reason        string                `json:"reason,omitempty"` // set when skipped or failed
	MatchedPoints []geometry.Pixel      `json:"matched_points,omitempty"`
	Boxes         []BoxResult           `json:"boxes,omitempty"`
}

// Name returns the image file name with extension.
func (s *Sheet) Name() string {
	return filepath.Base(s.Path)
}

// Stem returns the image file name without the extension.
func (s *Sheet) Stem() string {
	name := s.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Ext returns the image file extension, dot included.
func (s *Sheet) Ext() string {
	return filepath.Ext(s.Path)
}

// Tally counts the sheet's labels.
func (s *Sheet) Tally() (crossed, empty int) {
	for _, b := range s.Boxes {
		if b.Label == constants.LabelCrossed {
			crossed++
		} else {
			empty++
		}
	}
	return crossed, empty
}

// CrossedOptions returns the crossed option numbers of one question, in
// ascending option order.
func (s *Sheet) CrossedOptions(question int) []int {
	var opts []int
	for _, b := range s.Boxes {
		if b.Question == question && b.Label == constants.LabelCrossed {
			opts = append(opts, b.Option)
		}
	}
	return opts
}

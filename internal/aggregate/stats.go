// Package aggregate accumulates classification results across a batch.
// Pure tallying: no I/O, no ordering requirements beyond one row per
// input sheet.
package aggregate

import (
	"markscan/constants"
	"markscan/internal/entity"
)

// Summary is the batch-level roll-up of a run.
type Summary struct {
	Sheets  int // sheets processed successfully
	Skipped int // alignment failures
	Failed  int // decode or I/O failures
	Crossed int
	Empty   int

	// CrossCounts[q-1][o-1] is how many sheets crossed option o of
	// question q.
	CrossCounts [][]int
}

// Summarize tallies a batch. Questions and options fix the cross-count
// matrix dimensions; box results outside that grid are ignored.
func Summarize(sheets []*entity.Sheet, questions, options int) Summary {
	s := Summary{CrossCounts: make([][]int, questions)}
	for q := range s.CrossCounts {
		s.CrossCounts[q] = make([]int, options)
	}

	for _, sheet := range sheets {
		switch sheet.Status {
		case constants.SheetStatusSkipped:
			s.Skipped++
			continue
		case constants.SheetStatusFailed:
			s.Failed++
			continue
		}
		s.Sheets++

		crossed, empty := sheet.Tally()
		s.Crossed += crossed
		s.Empty += empty

		for _, b := range sheet.Boxes {
			if b.Label != constants.LabelCrossed {
				continue
			}
			if b.Question < 1 || b.Question > questions || b.Option < 1 || b.Option > options {
				continue
			}
			s.CrossCounts[b.Question-1][b.Option-1]++
		}
	}
	return s
}

// Package report emits the run's outputs: annotated questionnaire
// images and one XLSX workbook with per-sheet rows and the batch
// summary.
package report

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"markscan/internal/aggregate"
	"markscan/internal/entity"
	"markscan/internal/template"
)

// Writer is a small façade that turns processed sheets into files.
type Writer struct {
	tpl         *template.Template
	logger      *slog.Logger
	pointRadius int
	boxRadius   int
}

// NewWriter builds a writer. pointRadius and boxRadius control the
// label squares drawn around matched points and crossed boxes.
func NewWriter(tpl *template.Template, pointRadius, boxRadius int, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{tpl: tpl, logger: logger, pointRadius: pointRadius, boxRadius: boxRadius}
}

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// BuildWorkbook returns the aggregate XLSX workbook as bytes: a Results
// sheet with one row per input image and a Summary sheet with batch
// totals plus the per-question cross counts.
func (w *Writer) BuildWorkbook(sheets []*entity.Sheet, sum aggregate.Summary) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	if err := w.writeResults(f, sheets); err != nil {
		return nil, err
	}
	if err := w.writeSummary(f, sum); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("report.xlsx.ok",
		"rows", len(sheets),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (w *Writer) writeResults(f *excelize.File, sheets []*entity.Sheet) error {
	headers := []string{"File", "Status", "Crossed", "Empty"}
	for q := 1; q <= w.tpl.Questions; q++ {
		headers = append(headers, fmt.Sprintf("Q%d", q))
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(resultsSheet, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, s := range sheets {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(resultsSheet, cell, v)
		}

		write(1, s.Name())
		write(2, string(s.Status))

		crossed, empty := s.Tally()
		write(3, crossed)
		write(4, empty)

		for q := 1; q <= w.tpl.Questions; q++ {
			write(4+q, joinInts(s.CrossedOptions(q)))
		}
		row++
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 36) // file name
	_ = f.SetColWidth(resultsSheet, "B", "B", 12)
	lastQ, _ := excelize.ColumnNumberToName(4 + w.tpl.Questions)
	_ = f.SetColWidth(resultsSheet, "E", lastQ, 8)
	return nil
}

func (w *Writer) writeSummary(f *excelize.File, sum aggregate.Summary) error {
	set := func(row, col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(summarySheet, cell, v)
	}

	set(1, 1, "Sheets processed")
	set(1, 2, sum.Sheets)
	set(2, 1, "Sheets skipped")
	set(2, 2, sum.Skipped)
	set(3, 1, "Sheets failed")
	set(3, 2, sum.Failed)
	set(4, 1, "Boxes crossed")
	set(4, 2, sum.Crossed)
	set(5, 1, "Boxes empty")
	set(5, 2, sum.Empty)

	// Cross-count matrix, questions down, options across.
	const matrixTop = 7
	for o := 1; o <= w.tpl.Options; o++ {
		set(matrixTop, 1+o, fmt.Sprintf("Option %d", o))
	}
	for q := 1; q <= w.tpl.Questions; q++ {
		set(matrixTop+q, 1, fmt.Sprintf("Question %d", q))
		for o := 1; o <= w.tpl.Options; o++ {
			set(matrixTop+q, 1+o, sum.CrossCounts[q-1][o-1])
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	return nil
}

func joinInts(vals []int) string {
	if len(vals) == 0 {
		return ""
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

package template

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"markscan/internal/common"
	"markscan/internal/geometry"
	"markscan/internal/imaging"
)

// Template directory layout. The two workbooks carry a header row and a
// label column; actual values start at the second row and column.
const (
	pointsWorkbook = "ref_points.xlsx"
	boxesWorkbook  = "ref_boxes.xlsx"
)

var referenceImageNames = []string{"reference.png", "reference.jpg", "reference.jpeg"}

// Load reads the reference template from dir: the reference image, the
// points-of-significance workbook and the box-centers workbook. Masks
// are binarized crops of the reference image around each point.
func Load(dir string, cfg common.TemplateConfig, logger *slog.Logger) (*Template, error) {
	if logger == nil {
		logger = slog.Default()
	}

	refImg, err := loadReferenceImage(dir)
	if err != nil {
		return nil, err
	}
	gray := imaging.ToGray(refImg)

	points, err := loadPoints(filepath.Join(dir, pointsWorkbook), gray, cfg)
	if err != nil {
		return nil, err
	}
	centers, err := loadBoxCenters(filepath.Join(dir, boxesWorkbook), cfg)
	if err != nil {
		return nil, err
	}

	t := &Template{
		Points:       points,
		Questions:    cfg.QuestionCount,
		Options:      cfg.OptionCount,
		MarkRadius:   cfg.MarkRadius,
		BinThreshold: cfg.BinThreshold,
		centers:      centers,
	}
	logger.Info("template.loaded",
		"dir", dir,
		"points", len(t.Points),
		"questions", t.Questions,
		"options", t.Options,
	)
	return t, nil
}

func loadReferenceImage(dir string) (image.Image, error) {
	for _, name := range referenceImageNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return imaging.Load(p)
		}
	}
	return nil, common.NewAppError("TEMPLATE_ERROR",
		fmt.Sprintf("no reference image found in %s", dir), common.ErrNotFound)
}

func loadPoints(path string, refGray *image.Gray, cfg common.TemplateConfig) ([]ReferencePoint, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, err
	}

	var points []ReferencePoint
	for i, row := range rows {
		if i == 0 || len(row) < 3 { // header row, or a row too short to hold x/y
			continue
		}
		x, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad x coordinate %q", path, i+1, row[1])
		}
		y, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad y coordinate %q", path, i+1, row[2])
		}
		p := geometry.Pixel{X: x, Y: y}
		mask := imaging.Binarize(imaging.CropAround(refGray, p, cfg.MarkRadius), cfg.BinThreshold)
		points = append(points, ReferencePoint{At: p, Mask: mask})
	}

	if len(points) < 3 {
		return nil, common.NewAppError("TEMPLATE_ERROR",
			fmt.Sprintf("%s defines %d points of significance, need at least 3", path, len(points)),
			common.ErrInvalidInput)
	}
	return points, nil
}

func loadBoxCenters(path string, cfg common.TemplateConfig) ([][]geometry.Pixel, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, err
	}

	var centers [][]geometry.Pixel
	for i, row := range rows {
		if i == 0 {
			continue
		}
		want := 1 + 2*cfg.OptionCount // label column + x/y pair per option
		if len(row) < want {
			return nil, fmt.Errorf("%s row %d: %d cells, want %d", path, i+1, len(row), want)
		}
		line := make([]geometry.Pixel, cfg.OptionCount)
		for o := 0; o < cfg.OptionCount; o++ {
			x, err := strconv.Atoi(row[1+2*o])
			if err != nil {
				return nil, fmt.Errorf("%s row %d option %d: bad x %q", path, i+1, o+1, row[1+2*o])
			}
			y, err := strconv.Atoi(row[2+2*o])
			if err != nil {
				return nil, fmt.Errorf("%s row %d option %d: bad y %q", path, i+1, o+1, row[2+2*o])
			}
			line[o] = geometry.Pixel{X: x, Y: y}
		}
		centers = append(centers, line)
	}

	if len(centers) != cfg.QuestionCount {
		return nil, common.NewAppError("TEMPLATE_ERROR",
			fmt.Sprintf("%s defines %d questions, configuration expects %d", path, len(centers), cfg.QuestionCount),
			common.ErrInvalidInput)
	}
	return centers, nil
}

func sheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, path, err)
	}
	return rows, nil
}

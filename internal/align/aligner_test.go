package align

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"testing"

	"markscan/internal/common"
	"markscan/internal/geometry"
	"markscan/internal/imaging"
	"markscan/internal/template"
)

const (
	testMarkRadius   = 4
	testBinThreshold = 200
)

// blankPage returns an all-white grayscale page.
func blankPage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = imaging.GrayWhite
	}
	return img
}

// drawMark stamps an L-shaped black mark centered on p. The asymmetric
// shape keeps the correlation peak unambiguous.
func drawMark(img *image.Gray, p geometry.Pixel) {
	for d := -3; d <= 3; d++ {
		img.SetGray(p.X+d, p.Y, color.Gray{Y: imaging.GrayBlack})
		img.SetGray(p.X, p.Y+d, color.Gray{Y: imaging.GrayBlack})
	}
	for d := 0; d <= 3; d++ {
		img.SetGray(p.X+d, p.Y+3, color.Gray{Y: imaging.GrayBlack})
	}
}

func testTemplate(t *testing.T, points []geometry.Pixel) *template.Template {
	t.Helper()

	ref := blankPage(300, 300)
	for _, p := range points {
		drawMark(ref, p)
	}

	refPoints := make([]template.ReferencePoint, len(points))
	for i, p := range points {
		mask := imaging.Binarize(imaging.CropAround(ref, p, testMarkRadius), testBinThreshold)
		refPoints[i] = template.ReferencePoint{At: p, Mask: mask}
	}

	centers := [][]geometry.Pixel{{{X: 150, Y: 150}}}
	tpl, err := template.New(refPoints, centers, testMarkRadius, testBinThreshold)
	if err != nil {
		t.Fatalf("template.New: %v", err)
	}
	return tpl
}

func testAligner(tpl *template.Template) *Aligner {
	return New(tpl, Config{
		SearchRadius:   15,
		MatchThreshold: 0.95,
		MinMatchPoints: 3,
	}, slog.Default())
}

func TestAlignRecoversTranslation(t *testing.T) {
	points := []geometry.Pixel{
		{X: 30, Y: 30}, {X: 270, Y: 30}, {X: 30, Y: 270}, {X: 270, Y: 270},
	}
	tpl := testTemplate(t, points)

	const dx, dy = 7, -5
	scan := blankPage(300, 300)
	for _, p := range points {
		drawMark(scan, geometry.Pixel{X: p.X + dx, Y: p.Y + dy})
	}

	res, err := testAligner(tpl).Align(scan)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(res.Matches) != len(points) {
		t.Fatalf("matched %d points, want %d", len(res.Matches), len(points))
	}

	for _, p := range points {
		got := res.Transform.Apply(p)
		want := geometry.Pixel{X: p.X + dx, Y: p.Y + dy}
		if got != want {
			t.Errorf("transform maps %v to %v, want %v", p, got, want)
		}
	}
}

func TestAlignIdentityOnSelf(t *testing.T) {
	points := []geometry.Pixel{
		{X: 30, Y: 30}, {X: 270, Y: 30}, {X: 30, Y: 270},
	}
	tpl := testTemplate(t, points)

	scan := blankPage(300, 300)
	for _, p := range points {
		drawMark(scan, p)
	}

	res, err := testAligner(tpl).Align(scan)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	for _, m := range res.Matches {
		if m.Found != m.Reference {
			t.Errorf("point %v found at %v, want same position", m.Reference, m.Found)
		}
		if m.Score < 0.99 {
			t.Errorf("point %v score %f, want ~1", m.Reference, m.Score)
		}
	}
}

func TestAlignBlankScanIsSkippable(t *testing.T) {
	points := []geometry.Pixel{
		{X: 30, Y: 30}, {X: 270, Y: 30}, {X: 30, Y: 270},
	}
	tpl := testTemplate(t, points)

	_, err := testAligner(tpl).Align(blankPage(300, 300))
	if err == nil {
		t.Fatal("expected alignment failure on a blank page")
	}
	if !errors.Is(err, common.ErrAlignment) {
		t.Fatalf("error = %v, want ErrAlignment so the batch can skip the sheet", err)
	}
}

// A mark covers only a few percent of its mask window, so the white
// background must never carry a placement over the threshold. This
// pins the behavior at the shipped defaults, where masks are large and
// mostly paper.
func TestAlignBlankScanSkippedAtDefaultThreshold(t *testing.T) {
	const sparseMaskRadius = 10 // 21x21 window around a 7px mark

	points := []geometry.Pixel{
		{X: 50, Y: 50}, {X: 250, Y: 50}, {X: 50, Y: 250}, {X: 250, Y: 250},
	}
	ref := blankPage(300, 300)
	for _, p := range points {
		drawMark(ref, p)
	}
	refPoints := make([]template.ReferencePoint, len(points))
	for i, p := range points {
		mask := imaging.Binarize(imaging.CropAround(ref, p, sparseMaskRadius), testBinThreshold)
		refPoints[i] = template.ReferencePoint{At: p, Mask: mask}
	}
	tpl, err := template.New(refPoints, [][]geometry.Pixel{{{X: 150, Y: 150}}}, sparseMaskRadius, testBinThreshold)
	if err != nil {
		t.Fatalf("template.New: %v", err)
	}

	defaults := common.LoadConfig().Pipeline
	aligner := New(tpl, Config{
		SearchRadius:   defaults.SearchRadius,
		MatchThreshold: defaults.MatchThreshold,
		MinMatchPoints: defaults.MinMatchPoints,
	}, slog.Default())

	_, err = aligner.Align(blankPage(300, 300))
	if !errors.Is(err, common.ErrAlignment) {
		t.Fatalf("error = %v, want ErrAlignment at the default match threshold", err)
	}

	// The same template still aligns a real scan at the defaults.
	scan := blankPage(300, 300)
	for _, p := range points {
		drawMark(scan, geometry.Pixel{X: p.X + 9, Y: p.Y - 7})
	}
	res, err := aligner.Align(scan)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if got := res.Transform.Apply(points[0]); got != (geometry.Pixel{X: 59, Y: 43}) {
		t.Errorf("transform maps %v to %v, want Pixel 59:43", points[0], got)
	}
}

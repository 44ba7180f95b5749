package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"markscan/internal/geometry"
)

var markColor = color.RGBA{R: 255, A: 255}

const (
	// line width of a labelling square
	boxLineWidth = 2
	// radius of a labelling dot, excluding the center pixel
	dotRadius = 1
)

// ToRGBA returns a mutable RGBA copy of the image.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// MarkArea draws a red square outline of side 2*radius+1 around the
// center pixel.
func MarkArea(dst *image.RGBA, center geometry.Pixel, radius int) {
	x0, y0 := center.X-radius, center.Y-radius
	x1, y1 := center.X+radius, center.Y+radius
	for w := 0; w < boxLineWidth; w++ {
		hline(dst, x0, x1, y0+w)
		hline(dst, x0, x1, y1-w)
		vline(dst, x0+w, y0, y1)
		vline(dst, x1-w, y0, y1)
	}
}

// MarkPoint draws a red dot on the pixel itself plus a red square
// outline around it, the way matched reference points are labelled.
func MarkPoint(dst *image.RGBA, center geometry.Pixel, radius int) {
	for dy := -dotRadius; dy <= dotRadius; dy++ {
		for dx := -dotRadius; dx <= dotRadius; dx++ {
			set(dst, center.X+dx, center.Y+dy)
		}
	}
	MarkArea(dst, center, radius)
}

func hline(dst *image.RGBA, x0, x1, y int) {
	for x := x0; x <= x1; x++ {
		set(dst, x, y)
	}
}

func vline(dst *image.RGBA, x, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		set(dst, x, y)
	}
}

func set(dst *image.RGBA, x, y int) {
	if (image.Point{X: x, Y: y}).In(dst.Bounds()) {
		dst.SetRGBA(x, y, markColor)
	}
}

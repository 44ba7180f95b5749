package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"markscan/internal/geometry"
)

// Grayscale extremes for 1-byte channels.
const (
	GrayBlack uint8 = 0
	GrayWhite uint8 = 255
)

// Load decodes a JPEG or PNG image from disk.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// Save encodes an image to disk, choosing the format from the file
// extension (.png for PNG, anything else JPEG). Missing parent
// directories are created.
func Save(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return fmt.Errorf("encode image %s: %w", path, err)
	}
	return nil
}

// ToGray converts any image to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

// CropAround cuts a square of side 2*radius+1 centered on the given
// pixel. Regions falling outside the source bounds are padded white, so
// the output size never varies.
func CropAround(src *image.Gray, center geometry.Pixel, radius int) *image.Gray {
	side := 2*radius + 1
	out := image.NewGray(image.Rect(0, 0, side, side))
	for i := range out.Pix {
		out.Pix[i] = GrayWhite
	}

	b := src.Bounds()
	for dy := -radius; dy <= radius; dy++ {
		sy := center.Y + dy
		if sy < b.Min.Y || sy >= b.Max.Y {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			sx := center.X + dx
			if sx < b.Min.X || sx >= b.Max.X {
				continue
			}
			out.SetGray(dx+radius, dy+radius, src.GrayAt(sx, sy))
		}
	}
	return out
}

// Resize scales a grayscale image to the given dimensions with the
// Catmull-Rom interpolator.
func Resize(src *image.Gray, width, height int) *image.Gray {
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src
	}
	out := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return out
}

// Binarize maps every pixel below the threshold to black and every
// other pixel to white.
func Binarize(src *image.Gray, threshold uint8) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := GrayWhite
			if src.GrayAt(x, y).Y < threshold {
				v = GrayBlack
			}
			out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: v})
		}
	}
	return out
}

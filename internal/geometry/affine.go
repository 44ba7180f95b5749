package geometry

import (
	"fmt"
	"math"
)

// Affine maps template coordinates into scan coordinates:
//
//	p' = A·p + b
//
// where A is a 2x2 linear part and b a translation vector.
type Affine struct {
	A [2][2]float64
	B [2]float64
}

// Identity returns the affine map that leaves every pixel in place.
func Identity() Affine {
	return Affine{A: [2][2]float64{{1, 0}, {0, 1}}}
}

// Translation returns the affine map that shifts every pixel by (dx, dy).
func Translation(dx, dy float64) Affine {
	t := Identity()
	t.B = [2]float64{dx, dy}
	return t
}

// Apply transforms a pixel, rounding to the nearest integer coordinates.
func (t Affine) Apply(p Pixel) Pixel {
	x := t.A[0][0]*float64(p.X) + t.A[0][1]*float64(p.Y) + t.B[0]
	y := t.A[1][0]*float64(p.X) + t.A[1][1]*float64(p.Y) + t.B[1]
	return Pixel{X: int(math.Round(x)), Y: int(math.Round(y))}
}

// FitAffine estimates the affine map that best carries src[i] onto dst[i]
// in the least-squares sense. At least 3 point pairs are required; with
// exactly 3 non-collinear pairs the fit is exact.
//
// The six parameters split into two independent regressions, one per
// output coordinate, each solved through its 3x3 normal equations.
func FitAffine(src, dst []Pixel) (Affine, error) {
	if len(src) != len(dst) {
		return Affine{}, fmt.Errorf("point count mismatch: %d src vs %d dst", len(src), len(dst))
	}
	if len(src) < 3 {
		return Affine{}, fmt.Errorf("need at least 3 point pairs, got %d", len(src))
	}

	// Normal equations M·u = v with rows built from (x, y, 1).
	var m [3][3]float64
	var vx, vy [3]float64
	for i := range src {
		row := [3]float64{float64(src[i].X), float64(src[i].Y), 1}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				m[r][c] += row[r] * row[c]
			}
			vx[r] += row[r] * float64(dst[i].X)
			vy[r] += row[r] * float64(dst[i].Y)
		}
	}

	ux, err := solve3(m, vx)
	if err != nil {
		return Affine{}, err
	}
	uy, err := solve3(m, vy)
	if err != nil {
		return Affine{}, err
	}

	return Affine{
		A: [2][2]float64{{ux[0], ux[1]}, {uy[0], uy[1]}},
		B: [2]float64{ux[2], uy[2]},
	}, nil
}

// solve3 solves a 3x3 linear system by Gaussian elimination with
// partial pivoting.
func solve3(m [3][3]float64, v [3]float64) ([3]float64, error) {
	const eps = 1e-12

	// Augment.
	var a [3][4]float64
	for r := 0; r < 3; r++ {
		copy(a[r][:3], m[r][:])
		a[r][3] = v[r]
	}

	for col := 0; col < 3; col++ {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < eps {
			return [3]float64{}, fmt.Errorf("degenerate point configuration")
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < 3; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < 4; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var out [3]float64
	for r := 2; r >= 0; r-- {
		sum := a[r][3]
		for c := r + 1; c < 3; c++ {
			sum -= a[r][c] * out[c]
		}
		out[r] = sum / a[r][r]
	}
	return out, nil
}

package geometry

import "fmt"

// Pixel is a point in image coordinates. X grows to the right, Y grows
// downwards, matching the decoded image's row/column layout.
type Pixel struct {
	X int
	Y int
}

func (p Pixel) String() string {
	return fmt.Sprintf("Pixel %d:%d", p.X, p.Y)
}

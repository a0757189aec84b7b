package viewport

import (
	"errors"
	"math"
)

var (
	// ErrNoViewport is returned when there is no image to map against.
	ErrNoViewport = errors.New("no viewport image")
	// ErrOutsideViewport is returned for clicks outside the displayed image.
	ErrOutsideViewport = errors.New("click outside viewport")
)

// Point is a position in display space.
type Point struct {
	X, Y float64
}

// Rect is the displayed image's bounding box in display space.
type Rect struct {
	Left, Top, Width, Height float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Left+r.Width &&
		p.Y >= r.Top && p.Y <= r.Top+r.Height
}

// MapClick converts a click at p on an image displayed in rect into remote
// viewport pixels, scaling by native.Width / rect.Width on both axes.
// Clicks outside rect are rejected rather than clamped.
func MapClick(p Point, rect Rect, native Size) (x, y int, err error) {
	if native.Width <= 0 || native.Height <= 0 || rect.Width <= 0 || rect.Height <= 0 {
		return 0, 0, ErrNoViewport
	}
	if !rect.Contains(p) {
		return 0, 0, ErrOutsideViewport
	}

	scale := float64(native.Width) / rect.Width
	x = int(math.Round((p.X - rect.Left) * scale))
	y = int(math.Round((p.Y - rect.Top) * scale))

	return clamp(x, native.Width-1), clamp(y, native.Height-1), nil
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

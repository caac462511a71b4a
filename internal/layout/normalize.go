// Package layout turns raw projection output into a bounded, renderable scene:
// unit-square coordinates, viewport mapping and the proximity graph between points.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/ideaspark/hub/internal/projection"
)

// Margin bounds for Viewport.
const (
	DefaultMargin = 0.05
	MaxMargin     = 0.45
)

// ErrInvalidViewport is returned by Viewport.Validate.
var ErrInvalidViewport = errors.New("invalid viewport")

// Unit is a point normalised into [0,1] on both axes.
type Unit struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize rescales each axis independently with (v-min)/(max-min). An axis on which
// every point has the same value maps to 0 for all points.
func Normalize(raw []projection.Point) []Unit {
	out := make([]Unit, len(raw))
	if len(raw) == 0 {
		return out
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for _, p := range raw {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	if rangeX == 0 {
		rangeX = 1
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}

	for i, p := range raw {
		out[i] = Unit{X: (p.X - minX) / rangeX, Y: (p.Y - minY) / rangeY}
	}

	return out
}

// Viewport is the rendering rectangle. Margin is a fraction of each dimension kept
// clear on every side.
type Viewport struct {
	Width  float64
	Height float64
	Margin float64
}

// Validate checks dimensions are positive and the margin is within [0, MaxMargin].
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive", ErrInvalidViewport)
	}

	if v.Margin < 0 || v.Margin > MaxMargin {
		return fmt.Errorf("%w: margin must be between 0 and %.2f", ErrInvalidViewport, MaxMargin)
	}

	return nil
}

// Map places u inside the viewport, leaving the margin on each side.
func (v Viewport) Map(u Unit) (x, y float64) {
	x = u.X*v.Width*(1-2*v.Margin) + v.Width*v.Margin
	y = u.Y*v.Height*(1-2*v.Margin) + v.Height*v.Margin

	return x, y
}

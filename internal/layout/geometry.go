// Package layout breaks a document tree into pages of positioned
// boxes sized for a fixed viewport.
package layout

import (
	"errors"
	"fmt"
)

// ErrViewportTooSmall reports a page geometry whose content area
// cannot hold a single line of body text.
var ErrViewportTooSmall = errors.New("layout: viewport too small for content")

// Insets are page margins in device pixels.
type Insets struct {
	Top, Right, Bottom, Left int
}

// Geometry fixes the page coordinate system. Width and Height come
// from the display backend, margins and type sizes from configuration.
type Geometry struct {
	Width  int
	Height int
	Margin Insets

	// BaseSize is the body text size in device pixels.
	BaseSize float64
	// LineHeight is the baseline distance as a multiple of BaseSize.
	LineHeight float64
}

// ContentWidth is the horizontal space available to boxes.
func (g Geometry) ContentWidth() int {
	return g.Width - g.Margin.Left - g.Margin.Right
}

// ContentHeight is the vertical space available to boxes on one page.
func (g Geometry) ContentHeight() int {
	return g.Height - g.Margin.Top - g.Margin.Bottom
}

// LinePixels is the body baseline distance in device pixels.
func (g Geometry) LinePixels() int {
	return roundPx(g.BaseSize * g.LineHeight)
}

// roundPx converts a fractional pixel measure to device pixels,
// rounding ties away from zero.
func roundPx(v float64) int {
	if v < 0 {
		return -roundPx(-v)
	}
	return int(v + 0.5)
}

// Validate rejects geometries that cannot hold any content.
func (g Geometry) Validate() error {
	if g.BaseSize <= 0 {
		return fmt.Errorf("layout: base size must be positive, got %g", g.BaseSize)
	}
	if g.LineHeight < 1 {
		return fmt.Errorf("layout: line height must be at least 1, got %g", g.LineHeight)
	}
	if g.ContentWidth() < int(g.BaseSize) || g.ContentHeight() < g.LinePixels() {
		return fmt.Errorf("%w: %dx%d with margins %+v", ErrViewportTooSmall, g.Width, g.Height, g.Margin)
	}
	return nil
}

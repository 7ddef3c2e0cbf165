package raster

import (
	"fmt"

	"github.com/andrewjensen/skelly/internal/layout"
	"github.com/andrewjensen/skelly/internal/text"
)

// Progress overlay geometry. The bar sits centered above the bottom
// edge with the page label under it.
const (
	barWidth       = 320
	barHeight      = 16
	barInnerOffset = 3
	overlayMarginY = 80
	labelOffsetY   = 8
	labelGray      = 120
	barOuterGray   = 120
	barInnerGray   = 60
)

// drawProgress paints the "Page N / M" label and progress bar into the
// bottom overlay strip.
func (r *Rasterizer) drawProgress(c *Canvas, geom layout.Geometry, pageNum, pageCount int) {
	percent := float64(pageNum) / float64(pageCount)
	if percent > 1 {
		percent = 1
	}

	w := barWidth
	if w > c.Width() {
		w = c.Width()
	}
	left := (c.Width() - w) / 2
	top := c.Height() - overlayMarginY - barHeight

	c.StrokeRect(left, top, w, barHeight, barOuterGray)
	innerW := roundPx(float64(w-2*barInnerOffset) * percent)
	c.FillRect(left+barInnerOffset, top+barInnerOffset, innerW, barHeight-2*barInnerOffset, barInnerGray)

	label := fmt.Sprintf("Page %d / %d", pageNum, pageCount)
	size := geom.BaseSize * 0.85
	run := r.shaper.Shape(label, text.ClassRegular, size)
	m := r.shaper.Metrics(text.ClassRegular, size)

	baseX := (c.Width() - roundPx(run.Width)) / 2
	baseY := c.Height() - overlayMarginY + barHeight + labelOffsetY + roundPx(m.Ascent)
	for _, g := range run.Glyphs {
		if g.Tofu {
			continue
		}
		mask := r.shaper.GlyphMask(g.Source, g.GID, size)
		if mask.Empty() {
			continue
		}
		r.drawMaskGray(c, baseX+roundPx(g.X)+mask.Left, baseY+roundPx(g.Y)+mask.Top, mask, labelGray)
	}
}

// drawMaskGray blends a glyph mask using a gray ink instead of black.
func (r *Rasterizer) drawMaskGray(c *Canvas, x, y int, mask *text.Mask, gray uint8) {
	b := mask.Alpha.Bounds()
	for my := 0; my < b.Dy(); my++ {
		for mx := 0; mx < b.Dx(); mx++ {
			a := mask.Alpha.Pix[my*mask.Alpha.Stride+mx]
			c.Ink(x+mx, y+my, gray, a)
		}
	}
}

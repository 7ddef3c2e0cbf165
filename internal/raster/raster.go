package raster

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/andrewjensen/skelly/internal/layout"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/text"
)

// ImageStore hands the rasterizer decoded images by source URL.
type ImageStore interface {
	Image(src string) (image.Image, bool)
}

// Options tune how pages are rasterized.
type Options struct {
	// Depth is the output bit depth, 1 or 8. Zero means 1.
	Depth int
	// Progress draws the page position overlay in the bottom margin.
	Progress bool
}

const codeBackground = 235

// Rasterizer paints pages. It draws glyph masks through the same
// shaper that positioned them during layout, so the mask cache is
// shared across pages and jobs.
//
// Rasterizer is safe for concurrent use.
type Rasterizer struct {
	shaper *text.Shaper
	opts   Options
}

// New creates a rasterizer drawing glyphs through s.
func New(s *text.Shaper, opts Options) (*Rasterizer, error) {
	switch opts.Depth {
	case 0:
		opts.Depth = 1
	case 1, 8:
	default:
		return nil, fmt.Errorf("raster: unsupported depth %d", opts.Depth)
	}
	return &Rasterizer{shaper: s, opts: opts}, nil
}

// RenderPage paints one page into a surface. pageNum is 1-based and
// drives the progress overlay. images may be nil; image boxes then
// render as empty frames.
func (r *Rasterizer) RenderPage(page *layout.Page, geom layout.Geometry, images ImageStore, pageNum, pageCount int) *Surface {
	canvas := NewCanvas(geom.Width, geom.Height)

	for i := range page.Boxes {
		box := &page.Boxes[i]
		switch c := box.Content.(type) {
		case *layout.TextLine:
			r.drawTextLine(canvas, box.X, box.Y, c)
		case *layout.ImageBox:
			r.drawImage(canvas, box, c, images)
		case *layout.RuleBox:
			canvas.FillRect(box.X, box.Y, box.W, box.H, 0)
		case *layout.BarBox:
			canvas.FillRect(box.X, box.Y, box.W, box.H, 0)
		case *layout.CodeBox:
			r.drawCode(canvas, box, c)
		case *layout.TableRowBox:
			r.drawTableRow(canvas, box, c)
		default:
			logging.Logger().Warn("skipping unknown box content", "type", fmt.Sprintf("%T", c))
		}
	}

	if r.opts.Progress && pageCount > 0 {
		r.drawProgress(canvas, geom, pageNum, pageCount)
	}

	if r.opts.Depth == 8 {
		return GraySurface(canvas.ToGray())
	}
	return DitherMono(canvas.ToGray())
}

// drawTextLine paints glyph masks along the line's baseline.
func (r *Rasterizer) drawTextLine(c *Canvas, x, y int, tl *layout.TextLine) {
	baseY := y + tl.Baseline
	for i := range tl.Glyphs {
		g := &tl.Glyphs[i]
		if g.Tofu {
			r.drawTofu(c, x, baseY, g)
			continue
		}
		mask := r.shaper.GlyphMask(g.Source, g.GID, g.Size)
		if mask.Empty() {
			continue
		}
		gx := x + roundPx(g.X) + mask.Left
		gy := baseY + roundPx(g.Y) + mask.Top
		c.DrawMask(gx, gy, mask.Alpha)
	}
	for _, d := range tl.Decors {
		if d.Kind != layout.DecorUnderline {
			continue
		}
		th := roundPx(tl.Size * 0.06)
		if th < 1 {
			th = 1
		}
		uy := baseY + roundPx(tl.Size*0.12)
		c.FillRect(x+d.StartX, uy, d.EndX-d.StartX, th, 0)
	}
}

// drawTofu draws the hollow box standing in for a rune no font in the
// cascade covers.
func (r *Rasterizer) drawTofu(c *Canvas, lineX, baseY int, g *layout.PlacedGlyph) {
	w := roundPx(g.Advance) - 1
	h := roundPx(g.Size * 0.7)
	if w < 2 || h < 2 {
		return
	}
	c.StrokeRect(lineX+roundPx(g.X), baseY-h, w, h, 0)
}

func (r *Rasterizer) drawImage(c *Canvas, box *layout.Box, ib *layout.ImageBox, images ImageStore) {
	if !ib.Placeholder && images != nil {
		if src, ok := images.Image(ib.Src); ok {
			r.blitScaled(c, box, src)
			return
		}
	}

	// Placeholder frame with the alt text centered inside.
	c.StrokeRect(box.X, box.Y, box.W, box.H, 0)
	if ib.AltLine != nil && len(ib.AltLine.Glyphs) > 0 {
		var lineW int
		for i := range ib.AltLine.Glyphs {
			g := &ib.AltLine.Glyphs[i]
			if end := roundPx(g.X + g.Advance); end > lineW {
				lineW = end
			}
		}
		tx := box.X + (box.W-lineW)/2
		ty := box.Y + (box.H-roundPx(ib.AltLine.Size*1.2))/2
		r.drawTextLine(c, tx, ty, ib.AltLine)
	}
}

// blitScaled resamples the source image into the box rectangle and
// composites it over white. Catmull-Rom resampling is deterministic
// and holds up well for the downscales page images need.
func (r *Rasterizer) blitScaled(c *Canvas, box *layout.Box, src image.Image) {
	dst := image.NewRGBA(image.Rect(0, 0, box.W, box.H))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	for y := 0; y < box.H; y++ {
		for x := 0; x < box.W; x++ {
			i := y*dst.Stride + x*4
			cr := uint32(dst.Pix[i])
			cg := uint32(dst.Pix[i+1])
			cb := uint32(dst.Pix[i+2])
			ca := uint32(dst.Pix[i+3])
			// RGBA is alpha-premultiplied, so the luma already carries
			// the alpha factor; add the white showing through.
			luma := (299*cr + 587*cg + 114*cb) / 1000
			gray := luma + 255*(255-ca)/255
			if gray > 255 {
				gray = 255
			}
			c.Set(box.X+x, box.Y+y, uint8(gray))
		}
	}
}

func (r *Rasterizer) drawCode(c *Canvas, box *layout.Box, cb *layout.CodeBox) {
	c.FillRect(box.X, box.Y, box.W, box.H, codeBackground)
	if len(cb.Lines) == 0 {
		return
	}
	pad := (box.H - len(cb.Lines)*cb.LineAdvance) / 2
	y := box.Y + pad
	for i := range cb.Lines {
		r.drawTextLine(c, box.X+pad, y, &cb.Lines[i])
		y += cb.LineAdvance
	}
}

func (r *Rasterizer) drawTableRow(c *Canvas, box *layout.Box, row *layout.TableRowBox) {
	for i := range row.Cells {
		r.drawTextLine(c, box.X+row.ColX[i], box.Y, &row.Cells[i])
	}
	if row.HeaderRule {
		c.FillRect(box.X, box.Y+box.H-1, box.W, 1, 0)
	}
}

// roundPx rounds a fractional pixel position, ties away from zero.
func roundPx(v float64) int {
	if v < 0 {
		return -roundPx(-v)
	}
	return int(v + 0.5)
}

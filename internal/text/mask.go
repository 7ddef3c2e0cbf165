package text

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/vector"
)

// Mask is a rasterized glyph coverage bitmap. Left and Top place the
// bitmap relative to the glyph origin on the baseline; Top is negative
// for glyphs that rise above it.
type Mask struct {
	Alpha *image.Alpha
	Left  int
	Top   int
}

// Empty reports whether the mask covers no pixels, as for a space.
func (m *Mask) Empty() bool {
	return m == nil || m.Alpha == nil || m.Alpha.Bounds().Empty()
}

type maskKey struct {
	source   *Source
	gid      uint16
	sizeBits uint32
}

// GlyphMask rasterizes a glyph outline to an antialiased coverage
// mask. Results are cached per (source, glyph, size); callers must not
// mutate the returned mask.
func (s *Shaper) GlyphMask(source *Source, gid uint16, size float64) *Mask {
	key := maskKey{source: source, gid: gid, sizeBits: uint32(floatToFixed(size))}
	return s.masks.getOrCreate(key, func() *Mask {
		return rasterizeGlyph(source, gid, size)
	})
}

// rasterizeGlyph loads the glyph outline at the requested ppem and
// fills it with x/image/vector. The sfnt segments are already in
// pixel units with the y axis pointing down.
func rasterizeGlyph(source *Source, gid uint16, size float64) *Mask {
	var buf sfnt.Buffer
	segs, err := source.sf.LoadGlyph(&buf, sfnt.GlyphIndex(gid), floatToFixed(size), nil)
	if err != nil || len(segs) == 0 {
		return &Mask{}
	}

	bounds := segs.Bounds()
	minX := int(math.Floor(fixedToFloat(bounds.Min.X)))
	minY := int(math.Floor(fixedToFloat(bounds.Min.Y)))
	maxX := int(math.Ceil(fixedToFloat(bounds.Max.X)))
	maxY := int(math.Ceil(fixedToFloat(bounds.Max.Y)))
	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return &Mask{}
	}

	r := vector.NewRasterizer(w, h)
	r.DrawOp = draw.Src
	dx, dy := float32(-minX), float32(-minY)
	for _, seg := range segs {
		p := func(i int) (float32, float32) {
			return float32(fixedToFloat(seg.Args[i].X)) + dx, float32(fixedToFloat(seg.Args[i].Y)) + dy
		}
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			x, y := p(0)
			r.MoveTo(x, y)
		case sfnt.SegmentOpLineTo:
			x, y := p(0)
			r.LineTo(x, y)
		case sfnt.SegmentOpQuadTo:
			bx, by := p(0)
			cx, cy := p(1)
			r.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := p(0)
			cx, cy := p(1)
			ex, ey := p(2)
			r.CubeTo(bx, by, cx, cy, ex, ey)
		}
	}

	alpha := image.NewAlpha(image.Rect(0, 0, w, h))
	r.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})
	return &Mask{Alpha: alpha, Left: minX, Top: minY}
}

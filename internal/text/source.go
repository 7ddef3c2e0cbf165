// Package text shapes and rasterizes styled text runs. Shaping goes
// through go-text/typesetting's HarfBuzz port, outlines and metrics
// come from the same TTF parsed with x/image/font/sfnt, so glyph IDs
// agree between the two.
package text

import (
	"bytes"
	"fmt"

	gtfont "github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Source is one parsed font file. It is immutable after creation and
// safe for concurrent use; the sfnt methods allocate their own working
// buffers when passed nil.
type Source struct {
	name string
	sf   *opentype.Font
	gt   *gtfont.Font
}

// NewSource parses TTF or OTF font data.
func NewSource(data []byte) (*Source, error) {
	sf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	// The shaping side parses the same bytes. gtfont.Font is read-only
	// and safe for concurrent use; the per-shape Face wrapper is not
	// and is created per call.
	gtFace, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}

	name := ""
	if n, err := sf.Name(nil, sfnt.NameIDFamily); err == nil {
		name = n
	}
	return &Source{name: name, sf: sf, gt: gtFace.Font}, nil
}

// Name returns the font family name, or "" when the font has none.
func (s *Source) Name() string { return s.name }

// HasGlyph reports whether the font maps r to a real glyph.
func (s *Source) HasGlyph(r rune) bool {
	idx, err := s.sf.GlyphIndex(nil, r)
	return err == nil && idx != 0
}

// Metrics holds vertical font metrics in pixels for one size.
type Metrics struct {
	// Ascent is the distance from baseline to the top of the tallest
	// glyph, Descent from baseline to the bottom of the deepest.
	// Both are positive.
	Ascent  float64
	Descent float64
	// Height is the font's natural baseline-to-baseline distance.
	Height float64
}

// Metrics returns the font's vertical metrics at the given pixel size.
func (s *Source) Metrics(size float64) Metrics {
	var buf sfnt.Buffer
	m, err := s.sf.Metrics(&buf, floatToFixed(size), xfont.HintingFull)
	if err != nil {
		return Metrics{Ascent: size * 0.8, Descent: size * 0.2, Height: size * 1.2}
	}
	return Metrics{
		Ascent:  fixedToFloat(m.Ascent),
		Descent: fixedToFloat(m.Descent),
		Height:  fixedToFloat(m.Height),
	}
}

// GlyphAdvance returns the horizontal advance of a glyph in pixels.
func (s *Source) GlyphAdvance(gid uint16, size float64) float64 {
	var buf sfnt.Buffer
	adv, err := s.sf.GlyphAdvance(&buf, sfnt.GlyphIndex(gid), floatToFixed(size), xfont.HintingFull)
	if err != nil {
		return 0
	}
	return fixedToFloat(adv)
}

// floatToFixed converts a pixel size to 26.6 fixed point.
func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}

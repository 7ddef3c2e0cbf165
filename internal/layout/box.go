package layout

import (
	"github.com/andrewjensen/skelly/internal/text"
)

// Box is a positioned rectangle on a page. Coordinates are absolute
// device pixels within the page surface.
type Box struct {
	X, Y, W, H int
	Content    Content
}

// Content is what a box draws. The rasterizer switches on the
// concrete type.
type Content interface {
	content()
}

// TextLine is one line of positioned glyphs. Glyph coordinates are
// relative to the box origin; Baseline is the distance from the box
// top to the text baseline.
type TextLine struct {
	Glyphs   []PlacedGlyph
	Baseline int
	Size     float64
	Decors   []Decoration
}

// PlacedGlyph is a glyph fixed at its drawing position. X is measured
// from the box left edge, Y from the baseline (positive down). A Tofu
// glyph has no source and is drawn as a hollow box of width Advance.
type PlacedGlyph struct {
	Source  *text.Source
	GID     uint16
	X       float64
	Y       float64
	Advance float64
	Size    float64
	Tofu    bool
}

// Decoration marks a horizontal range of a text line for extra ink.
type Decoration struct {
	Kind   DecorationKind
	StartX int
	EndX   int
}

// DecorationKind enumerates line decorations.
type DecorationKind uint8

const (
	// DecorUnderline marks hyperlink text.
	DecorUnderline DecorationKind = iota
)

// ImageBox draws a raster image scaled into the box rectangle. When
// Placeholder is set the image was missing or undecodable: the
// rasterizer draws a border and the alt text line instead.
type ImageBox struct {
	Src         string
	Alt         string
	Placeholder bool
	// AltLine is the shaped alt text, present only for placeholders.
	AltLine *TextLine
}

// RuleBox draws a filled horizontal rule across the box.
type RuleBox struct{}

// BarBox draws a filled vertical bar, used for block quote markers.
type BarBox struct{}

// CodeBox is an atomic block of preformatted lines. Lines are placed
// top to bottom at LineAdvance intervals.
type CodeBox struct {
	Lines       []TextLine
	LineAdvance int
	// Truncated is set when trailing lines were dropped to fit the page.
	Truncated bool
}

// TableRowBox is one table row. Cells[i] is drawn at ColX[i] pixels
// from the box left edge. HeaderRule draws a separator line under the
// row.
type TableRowBox struct {
	Cells      []TextLine
	ColX       []int
	HeaderRule bool
}

func (*TextLine) content()    {}
func (*ImageBox) content()    {}
func (*RuleBox) content()     {}
func (*BarBox) content()      {}
func (*CodeBox) content()     {}
func (*TableRowBox) content() {}

// Page is an ordered set of boxes fully contained in the page bounds.
type Page struct {
	Index int
	Boxes []Box
}

// Result is a finished layout: every page plus the warnings gathered
// while building them.
type Result struct {
	Pages    []*Page
	Geometry Geometry
	Warnings []string
}

// PageCount returns the number of pages, always at least one for a
// successful layout.
func (r *Result) PageCount() int { return len(r.Pages) }

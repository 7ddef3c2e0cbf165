package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/markup"
	"github.com/andrewjensen/skelly/internal/text"
)

// ImageSizer reports the intrinsic pixel size of a decoded image.
// Layout only needs dimensions; pixel data stays with the rasterizer.
type ImageSizer interface {
	ImageSize(src string) (w, h int, ok bool)
}

// headingScales multiply the base size per heading level, indexed by
// level-1.
var headingScales = [6]float64{2.0, 1.5, 1.25, 1.1, 1.0, 1.0}

// codeScale shrinks preformatted text slightly relative to body text.
const codeScale = 0.9

// Engine lays documents out into pages. It is stateless between calls
// and safe for concurrent use; per-call state lives in a pager.
type Engine struct {
	shaper *text.Shaper
}

// NewEngine creates an engine shaping text through s.
func NewEngine(s *text.Shaper) *Engine {
	return &Engine{shaper: s}
}

// Layout breaks doc into pages for the given geometry. images may be
// nil, in which case every image becomes a placeholder. The result
// always has at least one page; identical inputs produce identical
// results.
func (e *Engine) Layout(doc *markup.Document, geom Geometry, images ImageSizer) (*Result, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	p := &pager{
		eng:    e,
		geom:   geom,
		images: images,
	}
	p.newPage()

	for _, w := range doc.Warnings {
		p.warnings = append(p.warnings, w.Message)
	}
	for _, n := range doc.Blocks {
		p.block(n, geom.Margin.Left, geom.ContentWidth())
	}

	res := &Result{Pages: p.pages, Geometry: geom, Warnings: p.warnings}
	logging.Logger().Debug("layout finished",
		"blocks", len(doc.Blocks), "pages", len(res.Pages), "warnings", len(res.Warnings))
	return res, nil
}

// pager accumulates boxes into pages, breaking to a fresh page when
// content runs past the bottom margin.
type pager struct {
	eng      *Engine
	geom     Geometry
	images   ImageSizer
	pages    []*Page
	cur      *Page
	y        int
	needGap  bool
	warnings []string
}

func (p *pager) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *pager) newPage() {
	p.cur = &Page{Index: len(p.pages)}
	p.pages = append(p.pages, p.cur)
	p.y = p.geom.Margin.Top
	p.needGap = false
}

func (p *pager) bottom() int { return p.geom.Height - p.geom.Margin.Bottom }

// ensureSpace opens a new page when h pixels do not fit below the
// cursor. Content already on the current page stays put.
func (p *pager) ensureSpace(h int) {
	if p.y+h > p.bottom() && len(p.cur.Boxes) > 0 {
		p.newPage()
	}
}

// place appends a box at the cursor and advances past it. Width is
// clamped to the right margin so rounding can never leak outside the
// page.
func (p *pager) place(x, w, h int, c Content) {
	if max := p.geom.Width - p.geom.Margin.Right - x; w > max {
		w = max
	}
	p.cur.Boxes = append(p.cur.Boxes, Box{X: x, Y: p.y, W: w, H: h, Content: c})
	p.y += h
}

// gapBefore separates blocks vertically. The first block of a page
// starts flush at the top margin.
func (p *pager) gapBefore() {
	if p.needGap && len(p.cur.Boxes) > 0 {
		p.y += p.geom.LinePixels() / 2
	}
}

func (p *pager) block(n markup.Node, indent, width int) {
	switch n := n.(type) {
	case *markup.Heading:
		p.gapBefore()
		size := p.geom.BaseSize * headingScales[n.Level-1]
		p.flowSpans(n.Spans, size, true, indent, width, nil)

	case *markup.Paragraph:
		p.gapBefore()
		p.flowSpans(n.Spans, p.geom.BaseSize, false, indent, width, nil)

	case *markup.List:
		p.gapBefore()
		p.list(n, indent, width)

	case *markup.BlockQuote:
		p.gapBefore()
		p.quote(n, indent, width)

	case *markup.CodeBlock:
		p.gapBefore()
		p.code(n, indent, width)

	case *markup.Image:
		p.gapBefore()
		p.image(n, indent, width)

	case *markup.Table:
		p.gapBefore()
		p.table(n, indent, width)

	case *markup.ThematicBreak:
		p.gapBefore()
		p.rule(indent, width)

	default:
		p.warnf("layout: skipped unknown block %T", n)
	}
	p.needGap = true
}

// flowSpans wraps styled spans into lines at the given indent and
// width. beforeLine, when set, runs after the page break check and
// before each line box is placed.
func (p *pager) flowSpans(spans []markup.Span, size float64, baseBold bool, indent, width int, beforeLine func(lineH int)) {
	b := &breaker{shaper: p.eng.shaper, size: size}
	lines := b.breakTokens(spanTokens(spans, baseBold), float64(width))

	baseClass := text.ClassRegular
	if baseBold {
		baseClass = text.ClassBold
	}
	lineH := roundPx(size * p.geom.LineHeight)
	for _, lineTokens := range lines {
		p.ensureSpace(lineH)
		if beforeLine != nil {
			beforeLine(lineH)
		}
		tl, w := p.eng.renderLine(lineTokens, size, baseClass)
		p.place(indent, w, lineH, tl)
	}
}

// renderLine shapes a line's tokens and fixes every glyph at its pen
// position. Returns the line and its rounded pixel width.
func (e *Engine) renderLine(tokens []token, size float64, baseClass text.FaceClass) (*TextLine, int) {
	m := e.shaper.Metrics(baseClass, size)
	tl := &TextLine{Size: size, Baseline: roundPx(m.Ascent)}

	var pen float64
	for _, t := range tokens {
		if t.spaceBefore {
			pen += e.shaper.Measure(" ", t.class, size)
		}
		run := e.shaper.Shape(t.text, t.class, size)
		for _, g := range run.Glyphs {
			tl.Glyphs = append(tl.Glyphs, PlacedGlyph{
				Source:  g.Source,
				GID:     g.GID,
				X:       pen + g.X,
				Y:       g.Y,
				Advance: g.XAdvance,
				Size:    size,
				Tofu:    g.Tofu,
			})
		}
		if t.href != "" {
			tl.Decors = appendDecor(tl.Decors, Decoration{
				Kind:   DecorUnderline,
				StartX: roundPx(pen),
				EndX:   roundPx(pen + run.Width),
			})
		}
		pen += run.Width
	}
	w := roundPx(pen)
	if w < 1 {
		w = 1
	}
	return tl, w
}

// appendDecor extends the previous decoration when the new one starts
// where it ended, so a link split across tokens draws one underline.
func appendDecor(decors []Decoration, d Decoration) []Decoration {
	if n := len(decors); n > 0 {
		last := &decors[n-1]
		if last.Kind == d.Kind && d.StartX <= last.EndX {
			if d.EndX > last.EndX {
				last.EndX = d.EndX
			}
			return decors
		}
	}
	return append(decors, d)
}

func (p *pager) list(n *markup.List, indent, width int) {
	step := roundPx(1.5 * p.geom.BaseSize)
	if step > width/2 {
		// Deeply nested lists stop indenting rather than squeezing
		// text into a sliver.
		step = 0
	}
	markerGap := roundPx(0.4 * p.geom.BaseSize)

	for i, item := range n.Items {
		marker := "•"
		if n.Ordered {
			marker = strconv.Itoa(i+1) + "."
		}
		mLine, mW := p.eng.renderLine(
			[]token{{text: marker, class: text.ClassRegular}},
			p.geom.BaseSize, text.ClassRegular)

		lineH := p.geom.LinePixels()
		p.ensureSpace(lineH)

		// The marker box does not advance the cursor; the item's first
		// line shares its row.
		mx := indent + step - markerGap - mW
		if mx < indent {
			mx = indent
		}
		p.cur.Boxes = append(p.cur.Boxes, Box{X: mx, Y: p.y, W: mW, H: lineH, Content: mLine})

		p.needGap = false
		if len(item.Blocks) == 0 {
			// An empty item still occupies its marker row.
			p.y += lineH
			continue
		}
		for _, blk := range item.Blocks {
			p.block(blk, indent+step, width-step)
		}
	}
}

func (p *pager) quote(n *markup.BlockQuote, indent, width int) {
	barW := roundPx(0.15 * p.geom.BaseSize)
	if barW < 2 {
		barW = 2
	}
	inset := roundPx(p.geom.BaseSize)
	p.flowSpans(n.Spans, p.geom.BaseSize, false, indent+inset, width-inset, func(lineH int) {
		// One bar segment per line keeps the marker attached to the
		// text across page breaks.
		p.cur.Boxes = append(p.cur.Boxes, Box{X: indent, Y: p.y, W: barW, H: lineH, Content: &BarBox{}})
	})
}

func (p *pager) code(n *markup.CodeBlock, indent, width int) {
	size := codeScale * p.geom.BaseSize
	pad := roundPx(0.5 * size)
	lineAdv := roundPx(size * p.geom.LineHeight)
	maxW := float64(width - 2*pad)

	b := &breaker{shaper: p.eng.shaper, size: size}
	var lines []TextLine
	for _, raw := range strings.Split(n.Text, "\n") {
		if raw == "" {
			lines = append(lines, TextLine{Size: size, Baseline: roundPx(p.eng.shaper.Metrics(text.ClassMono, size).Ascent)})
			continue
		}
		// Code keeps its interior spacing, so a whole line is a single
		// token and only overlong lines split between runes.
		wrapped := b.breakTokens([]token{{text: raw, class: text.ClassMono}}, maxW)
		for _, lt := range wrapped {
			tl, _ := p.eng.renderLine(lt, size, text.ClassMono)
			lines = append(lines, *tl)
		}
	}

	box := &CodeBox{Lines: lines, LineAdvance: lineAdv}
	boxH := 2*pad + len(lines)*lineAdv

	// Code blocks are atomic. One taller than a page is truncated to
	// fit rather than split.
	if maxH := p.geom.ContentHeight(); boxH > maxH {
		keep := (maxH - 2*pad) / lineAdv
		if keep < 1 {
			keep = 1
		}
		dropped := len(box.Lines) - keep
		box.Lines = box.Lines[:keep]
		box.Truncated = true
		boxH = 2*pad + keep*lineAdv
		p.warnf("layout: code block truncated, %d lines dropped", dropped)
	}

	p.ensureSpace(boxH)
	p.place(indent, width, boxH, box)
}

func (p *pager) image(n *markup.Image, indent, width int) {
	iw, ih := 0, 0
	ok := false
	if p.images != nil {
		iw, ih, ok = p.images.ImageSize(n.Src)
	}
	if !ok || iw <= 0 || ih <= 0 {
		p.placeholder(n, indent, width)
		return
	}

	// Shrink to fit, never enlarge.
	w, h := iw, ih
	if w > width {
		h = h * width / w
		w = width
	}
	if maxH := p.geom.ContentHeight(); h > maxH {
		w = w * maxH / h
		h = maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	p.ensureSpace(h)
	x := indent + (width-w)/2
	p.place(x, w, h, &ImageBox{Src: n.Src, Alt: n.Alt})
}

// placeholder stands in for an image that is missing or undecodable:
// a bordered block holding the alt text.
func (p *pager) placeholder(n *markup.Image, indent, width int) {
	p.warnf("layout: missing image %s", n.Src)

	h := 4 * p.geom.LinePixels()
	if maxH := p.geom.ContentHeight(); h > maxH {
		h = maxH
	}

	alt := n.Alt
	if alt == "" {
		alt = n.Src
	}
	altLine, _ := p.eng.renderLine(
		[]token{{text: alt, class: text.ClassItalic}},
		p.geom.BaseSize, text.ClassRegular)

	p.ensureSpace(h)
	p.place(indent, width, h, &ImageBox{
		Src:         n.Src,
		Alt:         alt,
		Placeholder: true,
		AltLine:     altLine,
	})
}

func (p *pager) table(n *markup.Table, indent, width int) {
	cols := 0
	for _, row := range n.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}

	size := p.geom.BaseSize
	pad := roundPx(0.6 * size)
	lineH := p.geom.LinePixels()

	// Column widths from the widest cell, scaled down proportionally
	// when the table overflows the content width.
	widths := make([]int, cols)
	for ri, row := range n.Rows {
		class := text.ClassRegular
		if ri < n.HeaderRows {
			class = text.ClassBold
		}
		for ci, cell := range row {
			w := roundPx(p.eng.shaper.Measure(cell, class, size)) + 2*pad
			if w > widths[ci] {
				widths[ci] = w
			}
		}
	}
	total := 0
	for _, w := range widths {
		total += w
	}
	if total > width {
		for i := range widths {
			widths[i] = widths[i] * width / total
		}
		total = 0
		for _, w := range widths {
			total += w
		}
	}

	colX := make([]int, cols)
	x := 0
	for i, w := range widths {
		colX[i] = x + pad
		x += w
	}

	for ri, row := range n.Rows {
		baseBold := ri < n.HeaderRows
		class := text.ClassRegular
		if baseBold {
			class = text.ClassBold
		}

		box := &TableRowBox{ColX: colX[:len(row)], HeaderRule: ri == n.HeaderRows-1}
		for ci, cell := range row {
			cellText := p.fitCell(cell, class, size, widths[ci]-2*pad)
			tl, _ := p.eng.renderLine([]token{{text: cellText, class: class}}, size, class)
			box.Cells = append(box.Cells, *tl)
		}

		// Rows are atomic.
		p.ensureSpace(lineH)
		p.place(indent, total, lineH, box)
	}
}

// fitCell truncates cell text with an ellipsis when it cannot fit its
// column on one line.
func (p *pager) fitCell(s string, class text.FaceClass, size float64, maxW int) string {
	if maxW <= 0 {
		return ""
	}
	if p.eng.shaper.Measure(s, class, size) <= float64(maxW) {
		return s
	}
	const ellipsis = "…"
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if p.eng.shaper.Measure(candidate, class, size) <= float64(maxW) {
			return candidate
		}
	}
	return ellipsis
}

func (p *pager) rule(indent, width int) {
	h := roundPx(0.12 * p.geom.BaseSize)
	if h < 2 {
		h = 2
	}
	p.ensureSpace(h)
	p.place(indent, width, h, &RuleBox{})
}

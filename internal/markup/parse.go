package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/andrewjensen/skelly/internal/logging"
)

// Parse builds the document tree for a markdown source. Parsing never
// fails: markup that cannot be represented is degraded to text or
// dropped, and each degradation is recorded as a warning.
func Parse(source []byte) *Document {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(gtext.NewReader(source))

	b := &builder{source: source}
	doc := &Document{}
	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		if n := b.block(c); n != nil {
			doc.Blocks = append(doc.Blocks, n)
		}
	}
	doc.Warnings = b.warnings
	if len(b.warnings) > 0 {
		logging.Logger().Warn("markup degraded during parse", "warnings", len(b.warnings))
	}
	return doc
}

type builder struct {
	source   []byte
	warnings []Warning
}

func (b *builder) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, Warning{Message: fmt.Sprintf(format, args...)})
}

// block converts one block-level node, or returns nil when the node
// contributes nothing renderable.
func (b *builder) block(n ast.Node) Node {
	switch n := n.(type) {
	case *ast.Heading:
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return &Heading{Level: level, Spans: b.spans(n, 0, "")}

	case *ast.Paragraph:
		// A paragraph holding nothing but one image is a block image.
		if img, ok := b.soleImage(n); ok {
			return &Image{
				Src: string(img.Destination),
				Alt: b.plainText(img),
			}
		}
		spans := b.spans(n, 0, "")
		if len(spans) == 0 {
			return nil
		}
		return &Paragraph{Spans: spans}

	case *ast.TextBlock:
		spans := b.spans(n, 0, "")
		if len(spans) == 0 {
			return nil
		}
		return &Paragraph{Spans: spans}

	case *ast.List:
		return b.list(n)

	case *ast.Blockquote:
		spans := b.quoteSpans(n)
		if len(spans) == 0 {
			return nil
		}
		return &BlockQuote{Spans: spans}

	case *ast.FencedCodeBlock:
		return &CodeBlock{
			Lang: string(n.Language(b.source)),
			Text: b.blockLines(n),
		}

	case *ast.CodeBlock:
		return &CodeBlock{Text: b.blockLines(n)}

	case *ast.ThematicBreak:
		return &ThematicBreak{}

	case *east.Table:
		return b.table(n)

	case *ast.HTMLBlock:
		b.warnf("dropped raw HTML block")
		return nil

	default:
		b.warnf("dropped unsupported block %s", n.Kind())
		return nil
	}
}

func (b *builder) list(n *ast.List) *List {
	out := &List{Ordered: n.IsOrdered()}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		li := ListItem{}
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if block := b.block(c); block != nil {
				li.Blocks = append(li.Blocks, block)
			}
		}
		out.Items = append(out.Items, li)
	}
	return out
}

// quoteSpans flattens a block quote's paragraphs into one span run,
// joining paragraphs with a space. Nested structure inside quotes is
// not preserved.
func (b *builder) quoteSpans(n *ast.Blockquote) []Span {
	var spans []Span
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		part := b.spans(c, 0, "")
		if len(part) == 0 {
			continue
		}
		if len(spans) > 0 {
			spans = append(spans, Span{Text: " "})
		}
		spans = append(spans, part...)
	}
	return mergeSpans(spans)
}

func (b *builder) table(n *east.Table) *Table {
	out := &Table{}
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, b.plainText(cell))
		}
		if _, ok := row.(*east.TableHeader); ok {
			out.HeaderRows++
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// blockLines joins the raw source lines of a code block. The trailing
// newline of the final line is trimmed so layout sees exactly the code.
func (b *builder) blockLines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(b.source))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// spans converts the inline children of n into a merged span run. A
// delimiter the parser gave up on ends up literal in the merged text,
// which is worth surfacing: the author almost certainly meant emphasis.
func (b *builder) spans(n ast.Node, style Style, href string) []Span {
	spans := mergeSpans(b.inline(n, style, href))
	for _, s := range spans {
		if s.Style&StyleCode == 0 && strayEmphasis(s.Text) {
			b.warnf("unterminated emphasis kept as plain text")
			break
		}
	}
	return spans
}

func (b *builder) inline(n ast.Node, style Style, href string) []Span {
	var spans []Span
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			text := string(c.Segment.Value(b.source))
			if text != "" {
				spans = append(spans, Span{Text: text, Style: style, Href: href})
			}
			// Line breaks inside a paragraph are rewrapped, so both
			// soft and hard breaks become a plain space.
			if c.SoftLineBreak() || c.HardLineBreak() {
				spans = append(spans, Span{Text: " ", Style: style, Href: href})
			}

		case *ast.String:
			if len(c.Value) > 0 {
				spans = append(spans, Span{Text: string(c.Value), Style: style, Href: href})
			}

		case *ast.CodeSpan:
			text := b.plainText(c)
			if text != "" {
				spans = append(spans, Span{Text: text, Style: style | StyleCode, Href: href})
			}

		case *ast.Emphasis:
			s := style | StyleItalic
			if c.Level >= 2 {
				s = style | StyleBold
			}
			spans = append(spans, b.inline(c, s, href)...)

		case *ast.Link:
			spans = append(spans, b.inline(c, style, string(c.Destination))...)

		case *ast.AutoLink:
			u := string(c.URL(b.source))
			label := string(c.Label(b.source))
			if label == "" {
				label = u
			}
			spans = append(spans, Span{Text: label, Style: style, Href: u})

		case *ast.Image:
			// An image mixed into running text cannot be laid out as a
			// block, so its alt text stands in for it.
			alt := b.plainText(c)
			if alt == "" {
				alt = string(c.Destination)
			}
			b.warnf("inline image degraded to alt text: %s", alt)
			spans = append(spans, Span{Text: alt, Style: style | StyleItalic, Href: href})

		case *ast.RawHTML:
			b.warnf("dropped inline raw HTML")

		default:
			// Unknown inline markup keeps its text, loses its meaning.
			b.warnf("flattened unsupported inline %s", c.Kind())
			spans = append(spans, b.inline(c, style, href)...)
		}
	}
	return spans
}

// strayEmphasis reports whether text carries an emphasis delimiter the
// parser left as literal text. An opening delimiter run (preceded by
// start-of-text or a space, followed by a word) that was never matched
// survives exactly like this; escaped or mid-word delimiters do not
// trip it.
func strayEmphasis(text string) bool {
	for i := 0; i < len(text); {
		c := text[i]
		if c != '*' && c != '_' {
			i++
			continue
		}
		j := i
		for j < len(text) && text[j] == c {
			j++
		}
		openEdge := i == 0 || text[i-1] == ' ' || text[i-1] == '\t'
		wordAfter := j < len(text) && text[j] != ' ' && text[j] != '\t'
		if openEdge && wordAfter {
			return true
		}
		i = j
	}
	return false
}

// soleImage reports whether the paragraph consists of exactly one
// image and nothing but ignorable whitespace around it.
func (b *builder) soleImage(n *ast.Paragraph) (*ast.Image, bool) {
	var img *ast.Image
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil, false
			}
			img = c
		case *ast.Text:
			if len(bytes.TrimSpace(c.Segment.Value(b.source))) > 0 {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return img, img != nil
}

// plainText collects the raw text of every descendant of n.
func (b *builder) plainText(n ast.Node) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				buf.Write(c.Segment.Value(b.source))
				if c.SoftLineBreak() || c.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(c.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

// mergeSpans joins adjacent spans with identical attributes and drops
// whitespace-only runs at the edges.
func mergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	merged := spans[:0]
	for _, s := range spans {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Style == s.Style && last.Href == s.Href {
				last.Text += s.Text
				continue
			}
		}
		merged = append(merged, s)
	}
	// Trim leading and trailing whitespace of the run as a whole.
	for len(merged) > 0 {
		first := strings.TrimLeft(merged[0].Text, " \t")
		if first != "" {
			merged[0].Text = first
			break
		}
		merged = merged[1:]
	}
	for len(merged) > 0 {
		last := strings.TrimRight(merged[len(merged)-1].Text, " \t")
		if last != "" {
			merged[len(merged)-1].Text = last
			break
		}
		merged = merged[:len(merged)-1]
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

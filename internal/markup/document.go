// Package markup parses normalized markdown into the document tree the
// layout engine consumes.
package markup

// Style is a bit set of inline text attributes.
type Style uint8

const (
	StyleBold Style = 1 << iota
	StyleItalic
	StyleCode
)

// Has reports whether all bits of s2 are set in s.
func (s Style) Has(s2 Style) bool { return s&s2 == s2 }

// Span is a run of text with uniform styling. A non-empty Href marks
// the span as a hyperlink.
type Span struct {
	Text  string
	Style Style
	Href  string
}

// Node is a block-level element of the document tree.
type Node interface {
	node()
}

// Document is the parse result: an ordered sequence of blocks plus the
// non-fatal warnings collected while building them.
type Document struct {
	Blocks   []Node
	Warnings []Warning
}

// Warning records markup the parser had to degrade or drop.
type Warning struct {
	Message string
}

// Heading is a section heading, level 1 through 6.
type Heading struct {
	Level int
	Spans []Span
}

// Paragraph is a run of inline spans.
type Paragraph struct {
	Spans []Span
}

// List is an ordered or unordered list. Items may nest further lists.
type List struct {
	Ordered bool
	Items   []ListItem
}

// ListItem holds the blocks making up a single list entry.
type ListItem struct {
	Blocks []Node
}

// BlockQuote is quoted prose.
type BlockQuote struct {
	Spans []Span
}

// CodeBlock is preformatted text. Lang is empty for indented blocks.
type CodeBlock struct {
	Lang string
	Text string
}

// Image is a block-level image reference with its fallback text.
type Image struct {
	Src string
	Alt string
}

// Table is a simple grid of text cells. The first row is the header
// when HeaderRows is positive.
type Table struct {
	HeaderRows int
	Rows       [][]string
}

// ThematicBreak is a horizontal rule.
type ThematicBreak struct{}

func (*Heading) node()       {}
func (*Paragraph) node()     {}
func (*List) node()          {}
func (*BlockQuote) node()    {}
func (*CodeBlock) node()     {}
func (*Image) node()         {}
func (*Table) node()         {}
func (*ThematicBreak) node() {}

// PlainText flattens the spans into a single string. Used by tests and
// the static backend's logging.
func PlainText(spans []Span) string {
	var n int
	for _, s := range spans {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range spans {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

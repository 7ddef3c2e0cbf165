package markup

import (
	"reflect"
	"testing"
)

func parseOne(t *testing.T, src string) Node {
	t.Helper()
	doc := Parse([]byte(src))
	if len(doc.Blocks) != 1 {
		t.Fatalf("Parse(%q) produced %d blocks, want 1", src, len(doc.Blocks))
	}
	return doc.Blocks[0]
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		src   string
		level int
		text  string
	}{
		{"# Top", 1, "Top"},
		{"## Second level", 2, "Second level"},
		{"###### Deep", 6, "Deep"},
	}
	for _, tt := range tests {
		h, ok := parseOne(t, tt.src).(*Heading)
		if !ok {
			t.Fatalf("Parse(%q) = %T, want *Heading", tt.src, parseOne(t, tt.src))
		}
		if h.Level != tt.level {
			t.Errorf("Parse(%q) level = %d, want %d", tt.src, h.Level, tt.level)
		}
		if got := PlainText(h.Spans); got != tt.text {
			t.Errorf("Parse(%q) text = %q, want %q", tt.src, got, tt.text)
		}
	}
}

func TestParseParagraphStyles(t *testing.T) {
	p, ok := parseOne(t, "plain **bold** *italic* `code` tail").(*Paragraph)
	if !ok {
		t.Fatal("want *Paragraph")
	}
	want := []Span{
		{Text: "plain "},
		{Text: "bold", Style: StyleBold},
		{Text: " "},
		{Text: "italic", Style: StyleItalic},
		{Text: " "},
		{Text: "code", Style: StyleCode},
		{Text: " tail"},
	}
	if !reflect.DeepEqual(p.Spans, want) {
		t.Errorf("spans = %+v\nwant   %+v", p.Spans, want)
	}
}

func TestParseLink(t *testing.T) {
	p, ok := parseOne(t, "see [the docs](https://example.com/docs) here").(*Paragraph)
	if !ok {
		t.Fatal("want *Paragraph")
	}
	var link *Span
	for i := range p.Spans {
		if p.Spans[i].Href != "" {
			link = &p.Spans[i]
		}
	}
	if link == nil {
		t.Fatal("no link span found")
	}
	if link.Text != "the docs" || link.Href != "https://example.com/docs" {
		t.Errorf("link span = %+v", *link)
	}
}

func TestParseSoftBreakBecomesSpace(t *testing.T) {
	p, ok := parseOne(t, "first line\nsecond line").(*Paragraph)
	if !ok {
		t.Fatal("want *Paragraph")
	}
	if got := PlainText(p.Spans); got != "first line second line" {
		t.Errorf("text = %q, want lines joined by space", got)
	}
}

func TestParseList(t *testing.T) {
	l, ok := parseOne(t, "- alpha\n- beta\n- gamma").(*List)
	if !ok {
		t.Fatal("want *List")
	}
	if l.Ordered {
		t.Error("dash list should be unordered")
	}
	if len(l.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(l.Items))
	}
	p, ok := l.Items[1].Blocks[0].(*Paragraph)
	if !ok {
		t.Fatalf("item block = %T, want *Paragraph", l.Items[1].Blocks[0])
	}
	if got := PlainText(p.Spans); got != "beta" {
		t.Errorf("item text = %q, want beta", got)
	}
}

func TestParseOrderedNestedList(t *testing.T) {
	l, ok := parseOne(t, "1. outer\n   1. inner a\n   2. inner b\n2. next").(*List)
	if !ok {
		t.Fatal("want *List")
	}
	if !l.Ordered {
		t.Error("numbered list should be ordered")
	}
	if len(l.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(l.Items))
	}
	var nested *List
	for _, blk := range l.Items[0].Blocks {
		if nl, ok := blk.(*List); ok {
			nested = nl
		}
	}
	if nested == nil {
		t.Fatal("no nested list inside first item")
	}
	if len(nested.Items) != 2 {
		t.Errorf("nested len(Items) = %d, want 2", len(nested.Items))
	}
}

func TestParseCodeBlock(t *testing.T) {
	cb, ok := parseOne(t, "```go\nfunc main() {\n\tprintln(\"hi\")\n}\n```").(*CodeBlock)
	if !ok {
		t.Fatal("want *CodeBlock")
	}
	if cb.Lang != "go" {
		t.Errorf("Lang = %q, want go", cb.Lang)
	}
	want := "func main() {\n\tprintln(\"hi\")\n}"
	if cb.Text != want {
		t.Errorf("Text = %q, want %q", cb.Text, want)
	}
}

func TestParseBlockQuote(t *testing.T) {
	q, ok := parseOne(t, "> quoted words\n> more of them").(*BlockQuote)
	if !ok {
		t.Fatal("want *BlockQuote")
	}
	if got := PlainText(q.Spans); got != "quoted words more of them" {
		t.Errorf("quote text = %q", got)
	}
}

func TestParseThematicBreak(t *testing.T) {
	if _, ok := parseOne(t, "---").(*ThematicBreak); !ok {
		t.Fatal("want *ThematicBreak")
	}
}

func TestParseBlockImage(t *testing.T) {
	img, ok := parseOne(t, "![a cat](https://example.com/cat.png)").(*Image)
	if !ok {
		t.Fatal("want *Image")
	}
	if img.Src != "https://example.com/cat.png" {
		t.Errorf("Src = %q", img.Src)
	}
	if img.Alt != "a cat" {
		t.Errorf("Alt = %q", img.Alt)
	}
}

func TestParseInlineImageDegrades(t *testing.T) {
	doc := Parse([]byte("before ![tiny icon](https://example.com/i.png) after"))
	if len(doc.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(doc.Blocks))
	}
	p := doc.Blocks[0].(*Paragraph)
	if got := PlainText(p.Spans); got != "before tiny icon after" {
		t.Errorf("text = %q, want alt text inline", got)
	}
	if len(doc.Warnings) == 0 {
		t.Error("degrading an inline image should record a warning")
	}
}

func TestParseUnterminatedEmphasis(t *testing.T) {
	doc := Parse([]byte("before\n\nsome *unterminated emphasis here\n\nafter\n"))
	if len(doc.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(doc.Blocks))
	}
	mid, ok := doc.Blocks[1].(*Paragraph)
	if !ok {
		t.Fatalf("middle block = %T, want *Paragraph", doc.Blocks[1])
	}
	if got := PlainText(mid.Spans); got != "some *unterminated emphasis here" {
		t.Errorf("text = %q, want the delimiter kept literally", got)
	}
	if len(doc.Warnings) == 0 {
		t.Error("unterminated emphasis should record a warning")
	}
}

func TestStrayEmphasis(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"some *unterminated emphasis", true},
		{"_opener at the start", true},
		{"a **double opener", true},
		{"2 * 3 = 6", false},
		{"mid*word stars", false},
		{"no delimiters at all", false},
	}
	for _, tt := range tests {
		if got := strayEmphasis(tt.text); got != tt.want {
			t.Errorf("strayEmphasis(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseTable(t *testing.T) {
	src := "| Name | Size |\n| --- | --- |\n| small | 1 |\n| large | 9 |"
	tb, ok := parseOne(t, src).(*Table)
	if !ok {
		t.Fatal("want *Table")
	}
	if tb.HeaderRows != 1 {
		t.Errorf("HeaderRows = %d, want 1", tb.HeaderRows)
	}
	want := [][]string{{"Name", "Size"}, {"small", "1"}, {"large", "9"}}
	if !reflect.DeepEqual(tb.Rows, want) {
		t.Errorf("Rows = %v, want %v", tb.Rows, want)
	}
}

func TestParseHTMLBlockDropped(t *testing.T) {
	doc := Parse([]byte("<div>widget</div>\n\nreal prose"))
	for _, blk := range doc.Blocks {
		if p, ok := blk.(*Paragraph); ok {
			if got := PlainText(p.Spans); got != "real prose" {
				t.Errorf("surviving paragraph = %q", got)
			}
		}
	}
	if len(doc.Warnings) == 0 {
		t.Error("dropping an HTML block should record a warning")
	}
}

func TestParseEmptyInput(t *testing.T) {
	doc := Parse(nil)
	if len(doc.Blocks) != 0 {
		t.Errorf("Parse(nil) blocks = %d, want 0", len(doc.Blocks))
	}
}

func TestParseDeterministic(t *testing.T) {
	src := []byte("# T\n\npara **b** [l](http://x)\n\n- a\n- b\n\n```\ncode\n```")
	first := Parse(src)
	for range 5 {
		again := Parse(src)
		if !reflect.DeepEqual(first.Blocks, again.Blocks) {
			t.Fatal("parse not deterministic")
		}
	}
}

func TestMergeSpans(t *testing.T) {
	got := mergeSpans([]Span{
		{Text: "  "},
		{Text: "a"},
		{Text: "b"},
		{Text: "c", Style: StyleBold},
		{Text: "d", Style: StyleBold},
		{Text: " "},
	})
	want := []Span{
		{Text: "ab"},
		{Text: "cd", Style: StyleBold},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeSpans = %+v, want %+v", got, want)
	}
}

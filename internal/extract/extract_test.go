package extract

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("parse url %q: %v", s, err)
	}
	return u
}

func TestExtract(t *testing.T) {
	const page = `<!DOCTYPE html>
<html><head><title>Ignored</title><style>body { color: red; }</style></head>
<body>
<h1>Hello</h1>
<p>Some <strong>bold</strong> prose.</p>
<script>alert("nope")</script>
</body></html>`

	md, err := Extract(strings.NewReader(page), "text/html; charset=utf-8", nil)
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	if !strings.Contains(md, "# Hello") {
		t.Errorf("markdown missing heading, got:\n%s", md)
	}
	if !strings.Contains(md, "**bold**") {
		t.Errorf("markdown missing bold span, got:\n%s", md)
	}
	if strings.Contains(md, "alert") {
		t.Errorf("script content leaked into markdown:\n%s", md)
	}
	if strings.Contains(md, "Ignored") {
		t.Errorf("title content leaked into markdown:\n%s", md)
	}
	if strings.Contains(md, "color") {
		t.Errorf("style content leaked into markdown:\n%s", md)
	}
}

func TestExtractResolvesRelativeReferences(t *testing.T) {
	const page = `<html><body>
<p><a href="/docs/page.html">docs</a></p>
<p><a href="https://other.example/x">external</a></p>
<img src="pics/cat.png" alt="cat">
</body></html>`

	base := mustURL(t, "https://example.com/articles/one.html")
	md, err := Extract(strings.NewReader(page), "text/html", base)
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	if !strings.Contains(md, "https://example.com/docs/page.html") {
		t.Errorf("relative href not resolved, got:\n%s", md)
	}
	if !strings.Contains(md, "https://example.com/articles/pics/cat.png") {
		t.Errorf("relative src not resolved, got:\n%s", md)
	}
	if !strings.Contains(md, "https://other.example/x") {
		t.Errorf("absolute href must be preserved, got:\n%s", md)
	}
}

func TestExtractEmptyContentTypeAssumesHTML(t *testing.T) {
	md, err := Extract(strings.NewReader("<p>hi</p>"), "", nil)
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	if !strings.Contains(md, "hi") {
		t.Errorf("got %q, want content", md)
	}
}

func TestExtractRejectsNonHTML(t *testing.T) {
	for _, ct := range []string{"application/json", "text/plain", "image/png"} {
		_, err := Extract(strings.NewReader("{}"), ct, nil)
		if !errors.Is(err, ErrUnsupportedContent) {
			t.Errorf("Extract(%q) = %v, want ErrUnsupportedContent", ct, err)
		}
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	_, err := Extract(strings.NewReader("<html><body></body></html>"), "text/html", nil)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Extract() = %v, want ErrEmptyDocument", err)
	}
}

func TestExtractDeterministic(t *testing.T) {
	const page = `<html><body><h2>Title</h2><ul><li>a</li><li>b</li></ul></body></html>`
	first, err := Extract(strings.NewReader(page), "text/html", nil)
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	for range 5 {
		again, err := Extract(strings.NewReader(page), "text/html", nil)
		if err != nil {
			t.Fatalf("Extract() = %v", err)
		}
		if again != first {
			t.Fatalf("extraction not deterministic:\nfirst:\n%s\nagain:\n%s", first, again)
		}
	}
}

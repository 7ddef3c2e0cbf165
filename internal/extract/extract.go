// Package extract turns captured HTML into normalized markdown.
//
// The pipeline is deliberately lossy: scripts, styles and page chrome
// do not survive, only the readable content does. Relative links and
// image references are resolved against the page URL so later stages
// never see a relative reference.
package extract

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/andrewjensen/skelly/internal/logging"
)

// ErrUnsupportedContent reports a capture whose media type is not HTML.
var ErrUnsupportedContent = errors.New("extract: content is not HTML")

// ErrEmptyDocument reports a page with no extractable content at all.
var ErrEmptyDocument = errors.New("extract: document has no content")

// strippedTags are removed from the tree before conversion. Their text
// content is noise, not prose.
var strippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"title":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
}

// Extract decodes the HTML read from r and converts it to markdown.
// contentType is the capture's Content-Type header and must name an
// HTML media type; its charset parameter drives transcoding to UTF-8.
// When base is non-nil, relative href and src attributes are resolved
// against it.
func Extract(r io.Reader, contentType string, base *url.URL) (string, error) {
	if err := checkContentType(contentType); err != nil {
		return "", err
	}

	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", fmt.Errorf("extract: detect charset: %w", err)
	}

	doc, err := html.Parse(decoded)
	if err != nil {
		return "", fmt.Errorf("extract: parse HTML: %w", err)
	}

	stripNodes(doc)
	if base != nil {
		resolveReferences(doc, base)
	}

	markdown, err := htmltomarkdown.ConvertNode(doc)
	if err != nil {
		return "", fmt.Errorf("extract: convert to markdown: %w", err)
	}

	text := strings.TrimSpace(string(markdown))
	if text == "" {
		return "", ErrEmptyDocument
	}
	logging.Logger().Debug("extracted markdown", "bytes", len(text))
	return text, nil
}

// checkContentType accepts HTML media types. An empty content type is
// allowed because capture clients frequently omit it; the body is then
// assumed to be HTML.
func checkContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: malformed content type %q", ErrUnsupportedContent, contentType)
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return nil
	}
	return fmt.Errorf("%w: got %q", ErrUnsupportedContent, mediaType)
}

// stripNodes removes non-content elements in place.
func stripNodes(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && strippedTags[c.Data] {
			n.RemoveChild(c)
			continue
		}
		stripNodes(c)
	}
}

// resolveReferences rewrites relative href and src attributes to
// absolute URLs. Unparseable references are left alone; the parser
// downgrades them later rather than failing the whole page.
func resolveReferences(n *html.Node, base *url.URL) {
	if n.Type == html.ElementNode {
		for i, attr := range n.Attr {
			if attr.Key != "href" && attr.Key != "src" {
				continue
			}
			resolved, ok := absoluteURL(attr.Val, base)
			if ok {
				n.Attr[i].Val = resolved
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		resolveReferences(c, base)
	}
}

func absoluteURL(ref string, base *url.URL) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.IsAbs() {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}

package layout

import (
	"strings"
	"unicode"

	"github.com/andrewjensen/skelly/internal/markup"
	"github.com/andrewjensen/skelly/internal/text"
)

// token is a word-sized fragment of styled text. Tokens are the unit
// of line breaking: lines may break before any token with spaceBefore
// set, never inside one.
type token struct {
	text  string
	class text.FaceClass
	href  string
	// spaceBefore separates this token from the previous one. A token
	// without it glues to its neighbor, as when a word changes style
	// halfway through.
	spaceBefore bool
}

// classFor maps span styling onto a face class. baseBold forces the
// bold axis, used by headings and table headers.
func classFor(style markup.Style, baseBold bool) text.FaceClass {
	if style.Has(markup.StyleCode) {
		return text.ClassMono
	}
	bold := baseBold || style.Has(markup.StyleBold)
	italic := style.Has(markup.StyleItalic)
	switch {
	case bold && italic:
		return text.ClassBoldItalic
	case bold:
		return text.ClassBold
	case italic:
		return text.ClassItalic
	}
	return text.ClassRegular
}

// spanTokens flattens styled spans into word tokens. Whitespace runs
// collapse to single breaking spaces; a style change mid-word produces
// glued tokens.
func spanTokens(spans []markup.Span, baseBold bool) []token {
	var tokens []token
	pendingSpace := false
	for _, span := range spans {
		class := classFor(span.Style, baseBold)
		rest := span.Text
		for rest != "" {
			i := strings.IndexFunc(rest, unicode.IsSpace)
			if i == 0 {
				j := lastSpace(rest)
				rest = rest[j:]
				pendingSpace = true
				continue
			}
			word := rest
			if i > 0 {
				word = rest[:i]
				rest = rest[i:]
			} else {
				rest = ""
			}
			tokens = append(tokens, token{
				text:        word,
				class:       class,
				href:        span.Href,
				spaceBefore: pendingSpace && len(tokens) > 0,
			})
			pendingSpace = false
		}
	}
	return tokens
}

// lastSpace returns the byte offset just past the leading whitespace
// run of s.
func lastSpace(s string) int {
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return len(s)
	}
	return i
}

// breaker fills lines greedily: each token goes on the current line
// while it fits, otherwise the line ends before it.
type breaker struct {
	shaper *text.Shaper
	size   float64
}

func (b *breaker) tokenWidth(t token) float64 {
	return b.shaper.Measure(t.text, t.class, b.size)
}

func (b *breaker) spaceWidth(class text.FaceClass) float64 {
	return b.shaper.Measure(" ", class, b.size)
}

// breakTokens splits tokens into lines no wider than maxW. A single
// token wider than maxW is force-split between runes so no line ever
// overflows.
func (b *breaker) breakTokens(tokens []token, maxW float64) [][]token {
	var lines [][]token
	var line []token
	var lineW float64

	flush := func() {
		if len(line) > 0 {
			lines = append(lines, line)
			line = nil
			lineW = 0
		}
	}

	for _, t := range tokens {
		w := b.tokenWidth(t)
		spaceW := 0.0
		if t.spaceBefore && len(line) > 0 {
			spaceW = b.spaceWidth(t.class)
		}

		if len(line) > 0 && lineW+spaceW+w > maxW {
			flush()
			spaceW = 0
		}

		if w > maxW {
			// Token alone exceeds the line. Split it hard.
			flush()
			for _, part := range b.splitLongToken(t, maxW) {
				pw := b.tokenWidth(part)
				lines = append(lines, []token{part})
				lineW = pw
			}
			// The final fragment stays open so following tokens can
			// share its line.
			line = lines[len(lines)-1]
			lines = lines[:len(lines)-1]
			continue
		}

		t.spaceBefore = spaceW > 0
		line = append(line, t)
		lineW += spaceW + w
	}
	flush()
	return lines
}

// splitLongToken cuts an oversized token into maxW-sized fragments at
// rune boundaries, marking each break with an ellipsis. Every fragment
// keeps the token's style and link.
func (b *breaker) splitLongToken(t token, maxW float64) []token {
	const marker = "…"
	markerW := b.shaper.Measure(marker, t.class, b.size)
	if markerW > maxW/2 {
		// No room for the marker, split bare.
		markerW = 0
	}

	runes := []rune(t.text)
	var parts []token
	start := 0
	for start < len(runes) {
		end := start + 1
		for end < len(runes) {
			if b.shaper.Measure(string(runes[start:end+1]), t.class, b.size)+markerW > maxW {
				break
			}
			end++
		}
		part := t
		part.text = string(runes[start:end])
		part.spaceBefore = false
		if end < len(runes) && markerW > 0 {
			part.text += marker
		}
		parts = append(parts, part)
		start = end
	}
	return parts
}

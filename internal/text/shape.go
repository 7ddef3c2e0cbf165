package text

import (
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
)

// tofuAdvance is the width of a missing-glyph box as a fraction of the
// font size.
const tofuAdvance = 0.6

// Glyph is one positioned glyph in a shaped run. X and Y are offsets
// from the run origin on the baseline, in pixels.
type Glyph struct {
	// Source is the font the glyph comes from. It is nil when Tofu is
	// set and the glyph is a missing-glyph box.
	Source   *Source
	GID      uint16
	X        float64
	Y        float64
	XAdvance float64
	// Cluster is the rune index the glyph maps back to.
	Cluster int
	Tofu    bool
}

// Run is the result of shaping one styled string at one size.
// Runs are cached and shared; callers must not mutate Glyphs.
type Run struct {
	Glyphs []Glyph
	// Width is the total pen advance in pixels.
	Width float64
	Size  float64
	Class FaceClass
}

// Shaper turns styled strings into positioned glyph runs. It is safe
// for concurrent use: HarfBuzz shaper instances are pooled because
// they carry mutable buffers, and results are memoized in a sharded
// LRU keyed by text content.
type Shaper struct {
	coll       *Collection
	shaperPool sync.Pool
	runs       [runShards]*cache[runKey, Run]
	masks      *cache[maskKey, *Mask]
}

const (
	runShards       = 16
	runCacheLimit   = 4096
	maskCacheLimit  = 2048
	shardCacheLimit = runCacheLimit / runShards
)

// runKey identifies a shaped run. The full text is part of the key so
// equal hashes can never alias different strings; hashing is used only
// to pick a shard.
type runKey struct {
	text     string
	class    FaceClass
	sizeBits uint32
}

// NewShaper creates a shaper over the given collection.
func NewShaper(coll *Collection) *Shaper {
	s := &Shaper{
		coll: coll,
		shaperPool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		masks: newCache[maskKey, *Mask](maskCacheLimit),
	}
	for i := range s.runs {
		s.runs[i] = newCache[runKey, Run](shardCacheLimit)
	}
	return s
}

// Collection returns the shaper's font collection.
func (s *Shaper) Collection() *Collection { return s.coll }

// Metrics returns line metrics for a face class at a pixel size.
func (s *Shaper) Metrics(class FaceClass, size float64) Metrics {
	return s.coll.Cascade(class).Metrics(size)
}

// Shape shapes text against the cascade of the given face class at a
// pixel size. Identical inputs always produce identical runs.
func (s *Shaper) Shape(text string, class FaceClass, size float64) Run {
	if text == "" || size <= 0 {
		return Run{Size: size, Class: class}
	}

	key := runKey{text: text, class: class, sizeBits: uint32(floatToFixed(size))}
	shard := s.runs[shardFor(text)]
	return shard.getOrCreate(key, func() Run {
		return s.shape(text, class, size)
	})
}

// shardFor spreads texts over the run cache shards with FNV-1a.
func shardFor(text string) int {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(text); i++ {
		h ^= uint64(text[i])
		h *= prime64
	}
	return int(h % runShards)
}

// segment is a maximal stretch of runes resolved to the same source.
type segment struct {
	start, end int
	source     *Source // nil means no coverage anywhere in the cascade
}

func (s *Shaper) shape(text string, class FaceClass, size float64) Run {
	cascade := s.coll.Cascade(class)
	runes := []rune(text)

	run := Run{Size: size, Class: class}
	var penX float64

	hb := s.shaperPool.Get().(*shaping.HarfbuzzShaper)
	defer s.shaperPool.Put(hb)

	for _, seg := range splitSegments(runes, cascade) {
		if seg.source == nil {
			// No font covers these runes. Each becomes a tofu box so
			// the reader can see where content was lost.
			for i := seg.start; i < seg.end; i++ {
				adv := size * tofuAdvance
				run.Glyphs = append(run.Glyphs, Glyph{
					X:        penX,
					XAdvance: adv,
					Cluster:  i,
					Tofu:     true,
				})
				penX += adv
			}
			continue
		}

		// gtfont.Face is not safe for concurrent use; wrap the shared
		// read-only Font per shaping call.
		input := shaping.Input{
			Text:      runes,
			RunStart:  seg.start,
			RunEnd:    seg.end,
			Direction: di.DirectionLTR,
			Face:      gtfont.NewFace(seg.source.gt),
			Size:      floatToFixed(size),
			Script:    detectScript(runes[seg.start:seg.end]),
			Language:  language.NewLanguage("en"),
		}
		out := hb.Shape(input)
		for _, g := range out.Glyphs {
			adv := fixedToFloat(g.Advance)
			run.Glyphs = append(run.Glyphs, Glyph{
				Source:   seg.source,
				GID:      uint16(g.GlyphID),
				X:        penX + fixedToFloat(g.XOffset),
				Y:        -fixedToFloat(g.YOffset),
				XAdvance: adv,
				Cluster:  g.TextIndex(),
			})
			penX += adv
		}
	}

	run.Width = penX
	return run
}

// splitSegments groups consecutive runes by the cascade source that
// covers them. Runes nobody covers form their own nil-source segments.
func splitSegments(runes []rune, cascade *Cascade) []segment {
	var segs []segment
	for i := 0; i < len(runes); {
		src, _ := cascade.ResolveRune(runes[i])
		j := i + 1
		for j < len(runes) {
			next, _ := cascade.ResolveRune(runes[j])
			if next != src {
				break
			}
			j++
		}
		segs = append(segs, segment{start: i, end: j, source: src})
		i = j
	}
	return segs
}

// detectScript returns the script of the first non-space rune, used to
// pick shaping rules for the whole segment.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

// Measure returns the advance width of text without retaining glyphs.
// It shares the run cache with Shape.
func (s *Shaper) Measure(text string, class FaceClass, size float64) float64 {
	return s.Shape(text, class, size).Width
}

package text

// Cascade is an ordered list of font sources. Rune lookups walk the
// list and the first source covering the rune wins, so earlier sources
// take priority.
type Cascade struct {
	sources []*Source
}

// NewCascade builds a cascade from one or more sources.
func NewCascade(sources ...*Source) (*Cascade, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyCascade
	}
	return &Cascade{sources: append([]*Source(nil), sources...)}, nil
}

// Primary returns the first source. Its metrics set the line geometry
// for every run shaped against this cascade.
func (c *Cascade) Primary() *Source { return c.sources[0] }

// ResolveRune returns the first source covering r, or false when no
// source does.
func (c *Cascade) ResolveRune(r rune) (*Source, bool) {
	for _, s := range c.sources {
		if s.HasGlyph(r) {
			return s, true
		}
	}
	return nil, false
}

// Metrics returns the primary source's metrics at the given size.
func (c *Cascade) Metrics(size float64) Metrics {
	return c.Primary().Metrics(size)
}

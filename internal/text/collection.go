package text

import (
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/andrewjensen/skelly/internal/logging"
)

// FaceClass selects the typeface variant a span is shaped with.
type FaceClass uint8

const (
	ClassRegular FaceClass = iota
	ClassBold
	ClassItalic
	ClassBoldItalic
	ClassMono

	numClasses
)

func (c FaceClass) String() string {
	switch c {
	case ClassRegular:
		return "regular"
	case ClassBold:
		return "bold"
	case ClassItalic:
		return "italic"
	case ClassBoldItalic:
		return "bold-italic"
	case ClassMono:
		return "mono"
	}
	return fmt.Sprintf("FaceClass(%d)", uint8(c))
}

// Collection maps each face class to its cascade.
type Collection struct {
	cascades [numClasses]*Cascade
}

// NewCollection builds a collection with the Go fonts as the built-in
// variants. User fonts, when given, become the primary regular sources
// and trailing fallbacks for every other class, so a cascade covering
// extra scripts also applies to bold headings and list markers.
func NewCollection(userFonts ...[]byte) (*Collection, error) {
	user := make([]*Source, 0, len(userFonts))
	for i, data := range userFonts {
		s, err := NewSource(data)
		if err != nil {
			return nil, fmt.Errorf("text: user font %d: %w", i, err)
		}
		user = append(user, s)
	}

	builtin := map[FaceClass][]byte{
		ClassRegular:    goregular.TTF,
		ClassBold:       gobold.TTF,
		ClassItalic:     goitalic.TTF,
		ClassBoldItalic: gobolditalic.TTF,
		ClassMono:       gomono.TTF,
	}

	var coll Collection
	for class, data := range builtin {
		base, err := NewSource(data)
		if err != nil {
			return nil, fmt.Errorf("text: built-in %s font: %w", class, err)
		}
		var sources []*Source
		if class == ClassRegular {
			sources = append(append(sources, user...), base)
		} else {
			sources = append(append(sources, base), user...)
		}
		cascade, err := NewCascade(sources...)
		if err != nil {
			return nil, err
		}
		coll.cascades[class] = cascade
	}
	return &coll, nil
}

// LoadCollection reads the configured font files and builds the
// collection. Unreadable files are skipped with a warning so a stale
// config cannot take the renderer down.
func LoadCollection(paths []string) (*Collection, error) {
	var fonts [][]byte
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Logger().Warn("skipping font", "path", path, "error", err)
			continue
		}
		fonts = append(fonts, data)
	}
	return NewCollection(fonts...)
}

// Cascade returns the cascade for a face class.
func (c *Collection) Cascade(class FaceClass) *Cascade {
	if class >= numClasses {
		class = ClassRegular
	}
	return c.cascades[class]
}

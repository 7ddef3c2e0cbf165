package display

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andrewjensen/skelly/internal/config"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/raster"
)

func init() {
	Register("static", newStatic)
}

// staticBackend writes every presented surface to a numbered PNG file.
// It never produces input events, so pages only change when a new
// capture arrives.
type staticBackend struct {
	dir    string
	width  int
	height int
	seq    int
	closed bool
}

func newStatic(cfg config.Display) (Backend, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("display: create output dir: %w", err)
	}
	return &staticBackend{dir: cfg.OutputDir, width: cfg.Width, height: cfg.Height}, nil
}

func (b *staticBackend) Name() string { return "static" }

func (b *staticBackend) Geometry() (int, int) { return b.width, b.height }

func (b *staticBackend) Depth() int { return 1 }

func (b *staticBackend) Present(s *raster.Surface) error {
	if b.closed {
		return ErrClosed
	}
	b.seq++
	path := filepath.Join(b.dir, fmt.Sprintf("page-%04d.png", b.seq))
	if err := s.SavePNG(path); err != nil {
		return fmt.Errorf("display: save %s: %w", path, err)
	}
	logging.Logger().Info("page written", "path", path)
	return nil
}

func (b *staticBackend) PollInput() (InputEvent, error) {
	if b.closed {
		return None, ErrClosed
	}
	return None, nil
}

func (b *staticBackend) Close() error {
	b.closed = true
	return nil
}

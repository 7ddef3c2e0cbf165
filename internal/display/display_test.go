package display

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewjensen/skelly/internal/config"
	"github.com/andrewjensen/skelly/internal/raster"
)

func testSurface(w, h int) *raster.Surface {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	// A few ink pixels so output files are not degenerate.
	g.Pix[0] = 0
	g.Pix[len(g.Pix)-1] = 0
	return raster.DitherMono(g)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(config.Display{Backend: "holodeck"})
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Fatalf("Open() = %v, want ErrBackendNotAvailable", err)
	}
}

func TestAvailableIncludesBuiltins(t *testing.T) {
	have := map[string]bool{}
	for _, name := range Available() {
		have[name] = true
	}
	for _, want := range []string{"window", "device", "static"} {
		if !have[want] {
			t.Errorf("Available() missing %q", want)
		}
	}
}

func TestStaticBackend(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(config.Display{Backend: "static", OutputDir: dir, Width: 40, Height: 30})
	if err != nil {
		t.Fatalf("Open(static) = %v", err)
	}
	if w, h := b.Geometry(); w != 40 || h != 30 {
		t.Errorf("Geometry() = %dx%d, want 40x30", w, h)
	}
	if b.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", b.Depth())
	}

	for range 2 {
		if err := b.Present(testSurface(40, 30)); err != nil {
			t.Fatalf("Present() = %v", err)
		}
	}
	for _, name := range []string{"page-0001.png", "page-0002.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}

	if ev, err := b.PollInput(); err != nil || ev != None {
		t.Errorf("PollInput() = %v, %v, want None", ev, err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := b.Present(testSurface(40, 30)); !errors.Is(err, ErrClosed) {
		t.Errorf("Present() after Close = %v, want ErrClosed", err)
	}
}

func TestDeviceBackendPresent(t *testing.T) {
	fb := filepath.Join(t.TempDir(), "fb0")
	if err := os.WriteFile(fb, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Open(config.Display{
		Backend:     "device",
		Width:       16,
		Height:      8,
		Framebuffer: fb,
		Input:       filepath.Join(t.TempDir(), "missing-input"),
	})
	if err != nil {
		t.Fatalf("Open(device) = %v", err)
	}
	defer b.Close()

	if err := b.Present(testSurface(16, 8)); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	data, err := os.ReadFile(fb)
	if err != nil {
		t.Fatal(err)
	}
	if want := 16 * 8 * 2; len(data) != want {
		t.Errorf("framebuffer has %d bytes, want %d (RGB565)", len(data), want)
	}
	// First pixel is ink: RGB565 zero.
	if data[0] != 0 || data[1] != 0 {
		t.Errorf("first pixel = %x %x, want black", data[0], data[1])
	}
	// The last pixel is ink too, so the whole frame landed in the one
	// write.
	if data[len(data)-2] != 0 || data[len(data)-1] != 0 {
		t.Errorf("last pixel = %x %x, want black", data[len(data)-2], data[len(data)-1])
	}

	if err := b.Present(testSurface(10, 10)); err == nil {
		t.Error("Present() with mismatched surface should fail")
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  string
		want InputEvent
	}{
		{"Right", NextPage},
		{"space", NextPage},
		{"Left", PrevPage},
		{"BackSpace", PrevPage},
		{"q", Custom(ActionQuit)},
		{"Escape", Custom(ActionQuit)},
		{"x", None},
	}
	for _, tt := range tests {
		if got := translateKey(tt.key); got != tt.want {
			t.Errorf("translateKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestInputEventString(t *testing.T) {
	if NextPage.String() != "next-page" || None.String() != "none" {
		t.Error("InputEvent.String() mismatch")
	}
	if got := Custom(ActionQuit).String(); got != "custom(1)" {
		t.Errorf("Custom(ActionQuit).String() = %q", got)
	}
}

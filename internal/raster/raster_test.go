package raster

import (
	"bytes"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/andrewjensen/skelly/internal/layout"
	"github.com/andrewjensen/skelly/internal/markup"
	"github.com/andrewjensen/skelly/internal/text"
)

var (
	shaperOnce sync.Once
	shaper     *text.Shaper
)

func testShaper(t *testing.T) *text.Shaper {
	t.Helper()
	shaperOnce.Do(func() {
		coll, err := text.NewCollection()
		if err != nil {
			panic(err)
		}
		shaper = text.NewShaper(coll)
	})
	return shaper
}

func testGeometry() layout.Geometry {
	return layout.Geometry{
		Width:      400,
		Height:     520,
		Margin:     layout.Insets{Top: 30, Right: 25, Bottom: 100, Left: 25},
		BaseSize:   16,
		LineHeight: 1.3,
	}
}

func layoutDoc(t *testing.T, doc *markup.Document, sizer layout.ImageSizer) *layout.Result {
	t.Helper()
	eng := layout.NewEngine(testShaper(t))
	res, err := eng.Layout(doc, testGeometry(), sizer)
	if err != nil {
		t.Fatalf("Layout() = %v", err)
	}
	return res
}

func inkInRegion(s *Surface, x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if s.MonoAt(x, y) {
				n++
			}
		}
	}
	return n
}

type memImages map[string]image.Image

func (m memImages) Image(src string) (image.Image, bool) {
	img, ok := m[src]
	return img, ok
}

func TestRenderPageMono(t *testing.T) {
	res := layoutDoc(t, &markup.Document{Blocks: []markup.Node{
		&markup.Paragraph{Spans: []markup.Span{{Text: "ink on paper"}}},
	}}, nil)

	r, err := New(testShaper(t), Options{Depth: 1})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	s := r.RenderPage(res.Pages[0], res.Geometry, nil, 1, 1)

	if s.W != res.Geometry.Width || s.H != res.Geometry.Height {
		t.Errorf("surface %dx%d, want %dx%d", s.W, s.H, res.Geometry.Width, res.Geometry.Height)
	}
	if s.Depth != 1 {
		t.Errorf("Depth = %d, want 1", s.Depth)
	}
	if inkInRegion(s, 0, 0, s.W, s.H) == 0 {
		t.Fatal("rendered page has no ink at all")
	}
	// Margins stay blank without the progress overlay.
	g := res.Geometry
	if n := inkInRegion(s, 0, 0, g.Margin.Left, s.H); n != 0 {
		t.Errorf("left margin has %d ink pixels", n)
	}
	if n := inkInRegion(s, 0, 0, s.W, g.Margin.Top); n != 0 {
		t.Errorf("top margin has %d ink pixels", n)
	}
}

func TestRenderPageDeterministic(t *testing.T) {
	res := layoutDoc(t, &markup.Document{Blocks: []markup.Node{
		&markup.Heading{Level: 1, Spans: []markup.Span{{Text: "Stable"}}},
		&markup.Paragraph{Spans: []markup.Span{{Text: strings.Repeat("repeatable pixels ", 12)}}},
	}}, nil)

	r, err := New(testShaper(t), Options{Depth: 1, Progress: true})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	first := r.RenderPage(res.Pages[0], res.Geometry, nil, 1, res.PageCount())
	for range 3 {
		again := r.RenderPage(res.Pages[0], res.Geometry, nil, 1, res.PageCount())
		if !bytes.Equal(first.Pix, again.Pix) {
			t.Fatal("identical render inputs produced different surfaces")
		}
	}
}

func TestRenderPageGray(t *testing.T) {
	res := layoutDoc(t, &markup.Document{Blocks: []markup.Node{
		&markup.Paragraph{Spans: []markup.Span{{Text: "gray preview"}}},
	}}, nil)

	r, err := New(testShaper(t), Options{Depth: 8})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	s := r.RenderPage(res.Pages[0], res.Geometry, nil, 1, 1)
	if s.Depth != 8 {
		t.Fatalf("Depth = %d, want 8", s.Depth)
	}
	// Antialiased text leaves intermediate gray levels.
	levels := map[uint8]bool{}
	for _, p := range s.Pix {
		levels[p] = true
	}
	if len(levels) < 3 {
		t.Errorf("gray surface has %d distinct levels, want antialiasing", len(levels))
	}
}

func TestRenderPageProgressOverlay(t *testing.T) {
	res := layoutDoc(t, &markup.Document{}, nil)

	r, err := New(testShaper(t), Options{Depth: 1, Progress: true})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	s := r.RenderPage(res.Pages[0], res.Geometry, nil, 2, 5)

	overlayTop := s.H - overlayMarginY - barHeight
	if n := inkInRegion(s, 0, overlayTop, s.W, s.H); n == 0 {
		t.Error("progress overlay drew nothing in the bottom strip")
	}

	bare := r2Must(t, Options{Depth: 1}).RenderPage(res.Pages[0], res.Geometry, nil, 2, 5)
	if n := inkInRegion(bare, 0, overlayTop, bare.W, bare.H); n != 0 {
		t.Errorf("overlay disabled but bottom strip has %d ink pixels", n)
	}
}

func r2Must(t *testing.T, opts Options) *Rasterizer {
	t.Helper()
	r, err := New(testShaper(t), opts)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return r
}

func TestRenderPageImage(t *testing.T) {
	dark := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for i := range dark.Pix {
		if i%4 == 3 {
			dark.Pix[i] = 255
		}
	}
	images := memImages{"img": dark}
	sizer := fakeSizer{"img": {80, 80}}

	res := layoutDoc(t, &markup.Document{Blocks: []markup.Node{
		&markup.Image{Src: "img", Alt: "dark square"},
	}}, sizer)

	r := r2Must(t, Options{Depth: 1})
	s := r.RenderPage(res.Pages[0], res.Geometry, images, 1, 1)

	box := res.Pages[0].Boxes[0]
	got := inkInRegion(s, box.X, box.Y, box.X+box.W, box.Y+box.H)
	if area := box.W * box.H; got < area*8/10 {
		t.Errorf("black image region has %d/%d ink pixels, want nearly all", got, area)
	}
}

type fakeSizer map[string][2]int

func (f fakeSizer) ImageSize(src string) (int, int, bool) {
	d, ok := f[src]
	return d[0], d[1], ok
}

func TestRenderPagePlaceholder(t *testing.T) {
	res := layoutDoc(t, &markup.Document{Blocks: []markup.Node{
		&markup.Image{Src: "missing", Alt: "lost"},
	}}, nil)

	r := r2Must(t, Options{Depth: 1})
	s := r.RenderPage(res.Pages[0], res.Geometry, nil, 1, 1)

	box := res.Pages[0].Boxes[0]
	// Border must be inked along the box top edge.
	if n := inkInRegion(s, box.X, box.Y, box.X+box.W, box.Y+2); n == 0 {
		t.Error("placeholder border missing")
	}
}

func TestDitherMonoExtremes(t *testing.T) {
	white := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	if s := DitherMono(white); inkInRegion(s, 0, 0, 16, 16) != 0 {
		t.Error("white input should dither to no ink")
	}

	black := image.NewGray(image.Rect(0, 0, 16, 16))
	if s := DitherMono(black); inkInRegion(s, 0, 0, 16, 16) != 16*16 {
		t.Error("black input should dither to all ink")
	}
}

func TestDitherMonoMidGray(t *testing.T) {
	mid := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range mid.Pix {
		mid.Pix[i] = 128
	}
	s := DitherMono(mid)
	ink := inkInRegion(s, 0, 0, 64, 64)
	total := 64 * 64
	if ink < total*40/100 || ink > total*60/100 {
		t.Errorf("mid gray dithered to %d/%d ink, want roughly half", ink, total)
	}
}

func TestSurfacePacking(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 1))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	g.Pix[0] = 0
	g.Pix[9] = 0
	s := DitherMono(g)

	if s.Stride != 2 {
		t.Errorf("Stride = %d, want 2 for 10px row", s.Stride)
	}
	if !s.MonoAt(0, 0) || !s.MonoAt(9, 0) {
		t.Error("set pixels lost in packing")
	}
	for x := 1; x < 9; x++ {
		if s.MonoAt(x, 0) {
			t.Errorf("pixel %d should be white", x)
		}
	}
	if s.MonoAt(-1, 0) || s.MonoAt(10, 0) {
		t.Error("out-of-bounds MonoAt should be white")
	}
}

func TestCanvasInk(t *testing.T) {
	c := NewCanvas(4, 4)
	if c.Pixel(1, 1) != 255 {
		t.Fatal("canvas should start white")
	}
	c.Ink(1, 1, 0, 255)
	if c.Pixel(1, 1) != 0 {
		t.Errorf("full coverage ink = %d, want 0", c.Pixel(1, 1))
	}
	c.Ink(2, 2, 0, 128)
	if p := c.Pixel(2, 2); p < 120 || p > 135 {
		t.Errorf("half coverage ink = %d, want about 127", p)
	}
	// Out of bounds is a no-op.
	c.Ink(-1, 0, 0, 255)
	c.Ink(0, 99, 0, 255)
}

func TestGraySurfaceRoundTrip(t *testing.T) {
	c := NewCanvas(8, 8)
	c.FillRect(2, 2, 3, 3, 77)
	s := GraySurface(c.ToGray())
	if s.GrayAt(3, 3) != 77 {
		t.Errorf("GrayAt(3,3) = %d, want 77", s.GrayAt(3, 3))
	}
	img := s.ToImage()
	if img.Pix[3*img.Stride+3] != 77 {
		t.Error("ToImage lost pixel data")
	}
}

// Package raster paints laid-out pages into pixel surfaces suitable
// for 1-bit e-ink panels and 8-bit desktop previews.
package raster

import (
	"image"
	"image/png"
	"os"
)

// Canvas is the grayscale working surface pages are painted on.
// One byte per pixel, 255 is paper white, 0 is full ink.
type Canvas struct {
	width  int
	height int
	data   []uint8
}

// NewCanvas creates a canvas cleared to white.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		width:  width,
		height: height,
		data:   make([]uint8, width*height),
	}
	c.Clear(255)
	return c
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

// Clear fills the whole canvas with one gray level.
func (c *Canvas) Clear(gray uint8) {
	for i := range c.data {
		c.data[i] = gray
	}
}

// Pixel returns the gray level at (x, y), white outside the bounds.
func (c *Canvas) Pixel(x, y int) uint8 {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return 255
	}
	return c.data[y*c.width+x]
}

// Set writes a gray level, ignoring out-of-bounds coordinates.
func (c *Canvas) Set(x, y int, gray uint8) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.data[y*c.width+x] = gray
}

// Ink blends ink into a pixel with the given coverage. Full coverage
// paints the target gray level, zero leaves the pixel alone.
func (c *Canvas) Ink(x, y int, gray uint8, coverage uint8) {
	if coverage == 0 || x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	i := y*c.width + x
	old := uint32(c.data[i])
	cov := uint32(coverage)
	c.data[i] = uint8((old*(255-cov) + uint32(gray)*cov) / 255)
}

// FillRect paints a solid rectangle, clipped to the canvas.
func (c *Canvas) FillRect(x, y, w, h int, gray uint8) {
	for yy := y; yy < y+h; yy++ {
		if yy < 0 || yy >= c.height {
			continue
		}
		for xx := x; xx < x+w; xx++ {
			if xx < 0 || xx >= c.width {
				continue
			}
			c.data[yy*c.width+xx] = gray
		}
	}
}

// StrokeRect draws a 1px rectangle outline.
func (c *Canvas) StrokeRect(x, y, w, h int, gray uint8) {
	if w <= 0 || h <= 0 {
		return
	}
	c.FillRect(x, y, w, 1, gray)
	c.FillRect(x, y+h-1, w, 1, gray)
	c.FillRect(x, y, 1, h, gray)
	c.FillRect(x+w-1, y, 1, h, gray)
}

// DrawMask blends an alpha coverage mask as black ink with its top
// left corner at (x, y).
func (c *Canvas) DrawMask(x, y int, mask *image.Alpha) {
	if mask == nil {
		return
	}
	b := mask.Bounds()
	for my := b.Min.Y; my < b.Max.Y; my++ {
		for mx := b.Min.X; mx < b.Max.X; mx++ {
			a := mask.Pix[(my-b.Min.Y)*mask.Stride+(mx-b.Min.X)]
			c.Ink(x+mx-b.Min.X, y+my-b.Min.Y, 0, a)
		}
	}
}

// ToGray copies the canvas into an image.Gray.
func (c *Canvas) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, c.width, c.height))
	copy(img.Pix, c.data)
	return img
}

// Surface is a finished page bitmap in device format.
type Surface struct {
	W, H int
	// Depth is bits per pixel: 1 for e-ink panels, 8 for previews.
	Depth  int
	Stride int
	// Pix holds rows top to bottom. At depth 1 pixels pack eight per
	// byte, most significant bit first, set bits meaning ink.
	Pix []byte
}

// MonoAt reports whether the pixel at (x, y) is ink. Valid for any
// depth; at depth 8 anything darker than mid-gray counts as ink.
func (s *Surface) MonoAt(x, y int) bool {
	if x < 0 || x >= s.W || y < 0 || y >= s.H {
		return false
	}
	switch s.Depth {
	case 1:
		b := s.Pix[y*s.Stride+x/8]
		return b&(0x80>>uint(x%8)) != 0
	default:
		return s.Pix[y*s.Stride+x] < 128
	}
}

// GrayAt returns the pixel's gray level, 255 for white.
func (s *Surface) GrayAt(x, y int) uint8 {
	if s.MonoAt(x, y) {
		return 0
	}
	if s.Depth == 8 && x >= 0 && x < s.W && y >= 0 && y < s.H {
		return s.Pix[y*s.Stride+x]
	}
	return 255
}

// ToImage expands the surface into an image.Gray for encoding.
func (s *Surface) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.W, s.H))
	if s.Depth == 8 {
		for y := 0; y < s.H; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+s.W], s.Pix[y*s.Stride:y*s.Stride+s.W])
		}
		return img
	}
	for y := 0; y < s.H; y++ {
		for x := 0; x < s.W; x++ {
			if !s.MonoAt(x, y) {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}

// SavePNG encodes the surface to a PNG file.
func (s *Surface) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, s.ToImage())
}

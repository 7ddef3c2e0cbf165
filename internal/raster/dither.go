package raster

import (
	"image"
	"image/color"
	"image/draw"
)

// monoPalette orders white before black so palette index 1 is ink.
var monoPalette = color.Palette{
	color.Gray{Y: 255},
	color.Gray{Y: 0},
}

// DitherMono reduces a grayscale image to a packed 1-bit surface
// using Floyd-Steinberg error diffusion. The diffusion is left to
// right, top to bottom, so output is fully deterministic.
func DitherMono(src *image.Gray) *Surface {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	paletted := image.NewPaletted(image.Rect(0, 0, w, h), monoPalette)
	draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), src, b.Min)

	stride := (w + 7) / 8
	s := &Surface{W: w, H: h, Depth: 1, Stride: stride, Pix: make([]byte, stride*h)}
	for y := 0; y < h; y++ {
		row := s.Pix[y*stride:]
		for x := 0; x < w; x++ {
			if paletted.Pix[y*paletted.Stride+x] == 1 {
				row[x/8] |= 0x80 >> uint(x%8)
			}
		}
	}
	return s
}

// GraySurface wraps a grayscale image as an 8-bit surface.
func GraySurface(src *image.Gray) *Surface {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	s := &Surface{W: w, H: h, Depth: 8, Stride: w, Pix: make([]byte, w*h)}
	for y := 0; y < h; y++ {
		copy(s.Pix[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return s
}

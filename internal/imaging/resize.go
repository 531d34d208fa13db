// Display-only rescaling and image.Image conversions.
package imaging

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// ToRGBA converts the buffer to an 8-bit image.RGBA, clamping samples to [0,1].
func (b *Buffer) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, b.W, b.H))
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			i := (y*b.W + x) * Channels
			o := out.PixOffset(x, y)
			out.Pix[o] = quantize(b.Pix[i])
			out.Pix[o+1] = quantize(b.Pix[i+1])
			out.Pix[o+2] = quantize(b.Pix[i+2])
			out.Pix[o+3] = 0xff
		}
	}
	return out
}

// FromRGBA builds a buffer from an 8-bit RGBA image, normalizing to [0,1].
func FromRGBA(img *image.RGBA) (*Buffer, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out, err := NewBuffer(w, h)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := img.PixOffset(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
			i := (y*w + x) * Channels
			out.Pix[i] = float32(img.Pix[o]) / 255
			out.Pix[i+1] = float32(img.Pix[o+1]) / 255
			out.Pix[i+2] = float32(img.Pix[o+2]) / 255
		}
	}
	return out, nil
}

// Resize rescales the buffer to w x h. This is display-only resampling,
// applied after the filter chain; highQuality selects Catmull-Rom over
// the cheap bilinear approximation.
func Resize(b *Buffer, w, h int, highQuality bool) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid resize target: %dx%d", w, h)
	}
	if w == b.W && h == b.H {
		return b.Clone(), nil
	}
	src := b.ToRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler := xdraw.Scaler(xdraw.ApproxBiLinear)
	if highQuality {
		scaler = xdraw.CatmullRom
	}
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return FromRGBA(dst)
}

func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

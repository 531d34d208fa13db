// Linear floating-point pixel buffer used by every processing stage.
package imaging

import (
	"fmt"
	"image"
)

// Channels per pixel. Buffers are interleaved RGB.
const Channels = 3

// MaxDimension bounds a single buffer axis. Matches the sanity limit the
// decoder enforces on incoming files.
const MaxDimension = 65536

// Buffer is a W x H linear RGB image with float32 samples in the nominal
// range [0,1]. The pixel slice is interleaved with stride Channels*W, the
// layout shared by all filter stages.
type Buffer struct {
	W, H int
	Pix  []float32
}

// NewBuffer allocates a zeroed buffer after validating the dimensions.
func NewBuffer(w, h int) (*Buffer, error) {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return nil, fmt.Errorf("invalid buffer dimensions: %dx%d", w, h)
	}
	return &Buffer{W: w, H: h, Pix: make([]float32, w*h*Channels)}, nil
}

// Stride returns the number of float32 samples per row.
func (b *Buffer) Stride() int { return b.W * Channels }

// Bounds returns the buffer extent as an image.Rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.W, b.H) }

// Empty reports whether the buffer holds no pixels.
func (b *Buffer) Empty() bool {
	return b == nil || b.W <= 0 || b.H <= 0 || len(b.Pix) < b.W*b.H*Channels
}

// At returns the RGB sample at (x, y). Coordinates are clamped to the
// buffer edge, which gives every neighborhood operator replicate-edge
// behavior for free.
func (b *Buffer) At(x, y int) (r, g, bl float32) {
	if x < 0 {
		x = 0
	} else if x >= b.W {
		x = b.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.H {
		y = b.H - 1
	}
	i := (y*b.W + x) * Channels
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// Set stores the RGB sample at (x, y). Out-of-range coordinates are ignored.
func (b *Buffer) Set(x, y int, r, g, bl float32) {
	if x < 0 || x >= b.W || y < 0 || y >= b.H {
		return
	}
	i := (y*b.W + x) * Channels
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{W: b.W, H: b.H, Pix: make([]float32, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// Fill sets every pixel to the given RGB value.
func (b *Buffer) Fill(r, g, bl float32) {
	for i := 0; i < len(b.Pix); i += Channels {
		b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
	}
}

// Extract copies the given rectangle into a new buffer. The rectangle may
// extend past the source bounds; out-of-image samples replicate the nearest
// edge pixel, so a tile carrying its overlap border sees exactly the pixels
// an untiled pass would see.
func (b *Buffer) Extract(r image.Rectangle) (*Buffer, error) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("empty extract rectangle %v", r)
	}
	out, err := NewBuffer(r.Dx(), r.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			pr, pg, pb := b.At(r.Min.X+x, r.Min.Y+y)
			out.Set(x, y, pr, pg, pb)
		}
	}
	return out, nil
}

// WriteRegion copies srcRect of src into the buffer with its top-left at
// dst. The region must fit entirely inside both buffers; the caller is
// responsible for keeping concurrent writes disjoint.
func (b *Buffer) WriteRegion(dst image.Point, src *Buffer, srcRect image.Rectangle) error {
	if !srcRect.In(src.Bounds()) {
		return fmt.Errorf("source rectangle %v outside source bounds %v", srcRect, src.Bounds())
	}
	dstRect := image.Rectangle{Min: dst, Max: dst.Add(srcRect.Size())}
	if !dstRect.In(b.Bounds()) {
		return fmt.Errorf("destination rectangle %v outside buffer bounds %v", dstRect, b.Bounds())
	}
	rowLen := srcRect.Dx() * Channels
	for y := 0; y < srcRect.Dy(); y++ {
		si := ((srcRect.Min.Y+y)*src.W + srcRect.Min.X) * Channels
		di := ((dst.Y+y)*b.W + dst.X) * Channels
		copy(b.Pix[di:di+rowLen], src.Pix[si:si+rowLen])
	}
	return nil
}

// Result assembly: per-generation canvas with coverage bookkeeping.
package render

import (
	"fmt"
	"image"

	"rawroom/internal/imaging"
)

// canvas collects trimmed tile interiors for one generation. Tile
// interiors are disjoint, so pixel writes need no lock; only the coverage
// record is synchronized (by the pipeline's accept path).
type canvas struct {
	roi       image.Rectangle
	buf       *imaging.Buffer
	covered   []bool
	remaining int
	failed    int
}

func newCanvas(roi image.Rectangle, tileCount int) (*canvas, error) {
	buf, err := imaging.NewBuffer(roi.Dx(), roi.Dy())
	if err != nil {
		return nil, err
	}
	return &canvas{
		roi:       roi,
		buf:       buf,
		covered:   make([]bool, tileCount),
		remaining: tileCount,
	}, nil
}

// write trims the overlap border from a processed tile and copies the
// interior into the canvas at the tile's offset.
func (c *canvas) write(tile TileSpec, processed *imaging.Buffer) error {
	outer := tile.Outer()
	if processed.W != outer.Dx() || processed.H != outer.Dy() {
		return fmt.Errorf("tile %d result is %dx%d, expected %dx%d",
			tile.Index, processed.W, processed.H, outer.Dx(), outer.Dy())
	}
	interior := image.Rect(
		tile.Interior.Min.X-outer.Min.X,
		tile.Interior.Min.Y-outer.Min.Y,
		tile.Interior.Max.X-outer.Min.X,
		tile.Interior.Max.Y-outer.Min.Y,
	)
	dst := tile.Interior.Min.Sub(c.roi.Min)
	return c.buf.WriteRegion(image.Point{X: dst.X, Y: dst.Y}, processed, interior)
}

// mark records a tile as accounted for, covered or failed, and reports
// whether the canvas is now complete. Must be called under the owning
// generation's accept lock.
func (c *canvas) mark(index int, failed bool) (complete bool) {
	if index < 0 || index >= len(c.covered) || c.covered[index] {
		return false
	}
	c.covered[index] = true
	if failed {
		c.failed++
	}
	c.remaining--
	return c.remaining == 0
}

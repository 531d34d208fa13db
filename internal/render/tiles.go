// Tile decomposition of a region of interest.
package render

import "image"

// TileSpec is one rectangular work unit of a generation. Interior is the
// region the tile owns in source coordinates; Outer adds the overlap
// border so kernel stages see enough context to avoid seams. Outer may
// extend past the image; extraction replicates edge pixels there.
type TileSpec struct {
	Index      int
	Generation uint64
	Interior   image.Rectangle
	Border     int
}

// Outer returns the interior inflated by the overlap border.
func (t TileSpec) Outer() image.Rectangle {
	return t.Interior.Inset(-t.Border)
}

// planTiles partitions roi into row-major tiles of at most tileSize on a
// side with the given overlap border. Interiors are disjoint and cover the
// roi exactly; the plan is deterministic for identical inputs. A roi that
// fits inside one tile yields a single TileSpec equal to the roi.
func planTiles(roi image.Rectangle, tileSize, border int, gen uint64) []TileSpec {
	if tileSize < 1 {
		tileSize = 1
	}
	if border < 0 {
		border = 0
	}
	w, h := roi.Dx(), roi.Dy()
	cols := (w + tileSize - 1) / tileSize
	rows := (h + tileSize - 1) / tileSize

	tiles := make([]TileSpec, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x0 := roi.Min.X + tx*tileSize
			y0 := roi.Min.Y + ty*tileSize
			x1 := min(x0+tileSize, roi.Max.X)
			y1 := min(y0+tileSize, roi.Max.Y)
			tiles = append(tiles, TileSpec{
				Index:      ty*cols + tx,
				Generation: gen,
				Interior:   image.Rect(x0, y0, x1, y1),
				Border:     border,
			})
		}
	}
	return tiles
}

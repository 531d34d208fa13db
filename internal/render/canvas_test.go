package render

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"rawroom/internal/imaging"
)

// fillTile builds a processed-tile buffer for the tile's outer rectangle
// whose every pixel encodes the tile index, so reassembly mistakes show up
// as wrong values rather than as coincidentally-right zeros.
func fillTile(t *testing.T, spec TileSpec) *imaging.Buffer {
	t.Helper()
	outer := spec.Outer()
	buf, err := imaging.NewBuffer(outer.Dx(), outer.Dy())
	require.NoError(t, err)
	v := float32(spec.Index+1) / 64
	buf.Fill(v, v, v)
	return buf
}

func TestCanvasAssemblyIsOrderIndependent(t *testing.T) {
	t.Parallel()

	roi := image.Rect(0, 0, 200, 120)
	tiles := planTiles(roi, 64, 5, 1)

	assemble := func(order []int) *imaging.Buffer {
		c, err := newCanvas(roi, len(tiles))
		require.NoError(t, err)
		done := false
		for _, i := range order {
			require.NoError(t, c.write(tiles[i], fillTile(t, tiles[i])))
			done = c.mark(tiles[i].Index, false)
		}
		require.True(t, done)
		require.Zero(t, c.failed)
		return c.buf
	}

	order := make([]int, len(tiles))
	for i := range order {
		order[i] = i
	}
	forward := assemble(order)

	rand.New(rand.NewSource(1)).Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	shuffled := assemble(order)

	require.Equal(t, forward.Pix, shuffled.Pix)
}

func TestCanvasWriteTrimsBorder(t *testing.T) {
	t.Parallel()

	roi := image.Rect(0, 0, 10, 10)
	tiles := planTiles(roi, 10, 2, 1)
	require.Len(t, tiles, 1)

	c, err := newCanvas(roi, 1)
	require.NoError(t, err)

	outer := tiles[0].Outer()
	processed, err := imaging.NewBuffer(outer.Dx(), outer.Dy())
	require.NoError(t, err)
	processed.Fill(0.9, 0.9, 0.9) // border value
	for y := 2; y < outer.Dy()-2; y++ {
		for x := 2; x < outer.Dx()-2; x++ {
			processed.Set(x, y, 0.2, 0.2, 0.2) // interior value
		}
	}
	require.NoError(t, c.write(tiles[0], processed))

	// Only interior pixels land on the canvas.
	for _, v := range c.buf.Pix {
		require.Equal(t, float32(0.2), v)
	}
}

func TestCanvasWriteRejectsWrongDimensions(t *testing.T) {
	t.Parallel()

	roi := image.Rect(0, 0, 10, 10)
	tiles := planTiles(roi, 10, 0, 1)
	c, err := newCanvas(roi, 1)
	require.NoError(t, err)

	wrong, err := imaging.NewBuffer(5, 5)
	require.NoError(t, err)
	require.Error(t, c.write(tiles[0], wrong))
}

func TestCanvasMarkIsIdempotentPerTile(t *testing.T) {
	t.Parallel()

	c, err := newCanvas(image.Rect(0, 0, 4, 4), 2)
	require.NoError(t, err)

	require.False(t, c.mark(0, false))
	require.False(t, c.mark(0, false)) // duplicate, no double count
	require.Equal(t, 1, c.remaining)
	require.True(t, c.mark(1, true))
	require.Equal(t, 1, c.failed)
	require.False(t, c.mark(5, false)) // out of range
}

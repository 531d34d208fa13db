package filter

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
)

func gradientBuffer(t *testing.T, w, h int) *imaging.Buffer {
	t.Helper()
	buf, err := imaging.NewBuffer(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(x+y) / float32(w+h)
			buf.Set(x, y, v, v, v)
		}
	}
	return buf
}

func TestGeometryIdentity(t *testing.T) {
	t.Parallel()

	require.True(t, GeometryIdentity(edit.Default()))
	s := edit.Default()
	s.Rotation = 0.5
	require.False(t, GeometryIdentity(s))
	s = edit.Default()
	s.Crop = edit.CropParams{X: 0.1, Y: 0, W: 0.9, H: 1}
	require.False(t, GeometryIdentity(s))
}

func TestCropQuadrantMatchesSubregion(t *testing.T) {
	t.Parallel()

	src := gradientBuffer(t, 100, 100)
	s := edit.Default()
	s.Crop = edit.CropParams{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

	for _, mode := range []Mode{ModeInteractive, ModeCommit} {
		out, err := ApplyGeometry(src, image.Point{}, 100, 100, s, mode)
		require.NoError(t, err)
		require.Equal(t, 50, out.W)
		require.Equal(t, 50, out.H)

		// A pure crop is an exact copy of the source subregion in both modes.
		want, err := src.Extract(image.Rect(25, 25, 75, 75))
		require.NoError(t, err)
		require.Equal(t, want.Pix, out.Pix)
	}
}

func TestRotationPreservesCropComposition(t *testing.T) {
	t.Parallel()

	src := gradientBuffer(t, 60, 40)
	s := edit.Default()
	s.Rotation = 10
	s.Crop = edit.CropParams{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

	fast, err := ApplyGeometry(src, image.Point{}, 60, 40, s, ModeInteractive)
	require.NoError(t, err)
	fine, err := ApplyGeometry(src, image.Point{}, 60, 40, s, ModeCommit)
	require.NoError(t, err)

	// Both modes agree in composition: same crop rectangle, same angle.
	require.Equal(t, fast.W, fine.W)
	require.Equal(t, fast.H, fine.H)

	// They agree on pixel values up to resampling-induced difference. The
	// source is a smooth gradient so nearest vs Catmull-Rom stays close.
	for i := range fast.Pix {
		require.InDelta(t, fine.Pix[i], fast.Pix[i], 0.05)
	}
}

func TestRotationSamplesStayInRange(t *testing.T) {
	t.Parallel()

	src := gradientBuffer(t, 30, 30)
	s := edit.Default()
	s.Rotation = -45
	out, err := ApplyGeometry(src, image.Point{}, 30, 30, s, ModeCommit)
	require.NoError(t, err)
	for i := range out.Pix {
		require.False(t, math.IsNaN(float64(out.Pix[i])))
		require.GreaterOrEqual(t, out.Pix[i], float32(0))
		require.LessOrEqual(t, out.Pix[i], float32(1))
	}
}

func TestZeroCropRejected(t *testing.T) {
	t.Parallel()

	src := gradientBuffer(t, 10, 10)
	s := edit.Default()
	s.Rotation = 1
	s.Crop = edit.CropParams{X: 0.999, Y: 0.999, W: 0.0001, H: 0.0001}
	_, err := ApplyGeometry(src, image.Point{}, 10, 10, s, ModeInteractive)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApplyGeometryRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	s := edit.Default()
	s.Rotation = 1
	var empty *imaging.Buffer
	_, err := ApplyGeometry(empty, image.Point{}, 10, 10, s, ModeInteractive)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

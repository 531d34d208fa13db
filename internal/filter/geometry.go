// Geometric stage: rotation about the image center followed by a crop to
// the normalized rectangle. Runs after every tonal and kernel stage and
// before any display-only rescaling.
package filter

import (
	"image"
	"math"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
)

// GeometryIdentity reports whether the geometric stage would be a no-op.
func GeometryIdentity(s edit.State) bool {
	return s.Rotation == 0 && s.Crop.IsFull()
}

// CropRect converts the normalized crop to pixels of a fullW x fullH image.
func CropRect(c edit.CropParams, fullW, fullH int) image.Rectangle {
	x0 := int(math.Round(c.X * float64(fullW)))
	y0 := int(math.Round(c.Y * float64(fullH)))
	w := int(math.Round(c.W * float64(fullW)))
	h := int(math.Round(c.H * float64(fullH)))
	if x0+w > fullW {
		w = fullW - x0
	}
	if y0+h > fullH {
		h = fullH - y0
	}
	return image.Rect(x0, y0, x0+w, y0+h)
}

// ApplyGeometry rotates src about the full image center and crops to the
// edit state's normalized rectangle. src is the region of the full image
// starting at origin; pass origin (0,0) and the buffer's own dimensions
// for a whole-image transform. Interactive mode samples nearest-neighbor;
// commit mode samples Catmull-Rom. Both modes agree on composition: same
// crop rectangle, same angle, differing only in resampling quality.
func ApplyGeometry(src *imaging.Buffer, origin image.Point, fullW, fullH int, s edit.State, mode Mode) (*imaging.Buffer, error) {
	if src.Empty() {
		return nil, &ValidationError{Reason: "empty geometry input"}
	}
	if GeometryIdentity(s) {
		return src.Clone(), nil
	}

	crop := CropRect(s.Crop, fullW, fullH)
	if crop.Dx() <= 0 || crop.Dy() <= 0 {
		return nil, &ValidationError{Reason: "crop rectangle collapses to zero pixels"}
	}
	out, err := imaging.NewBuffer(crop.Dx(), crop.Dy())
	if err != nil {
		return nil, err
	}

	if s.Rotation == 0 {
		// Pure crop: a direct copy keeps the output bit-identical to the
		// source subregion.
		local := crop.Sub(origin)
		region, err := src.Extract(local)
		if err != nil {
			return nil, err
		}
		return region, nil
	}

	theta := s.Rotation * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	cx := float64(fullW) / 2
	cy := float64(fullH) / 2

	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			// Output pixel center in full-image coordinates.
			ox := float64(crop.Min.X+x) + 0.5
			oy := float64(crop.Min.Y+y) + 0.5
			dx, dy := ox-cx, oy-cy
			// Inverse rotation maps the output grid back onto the source.
			sx := cx + dx*cos + dy*sin - float64(origin.X)
			sy := cy - dx*sin + dy*cos - float64(origin.Y)
			var r, g, b float32
			if mode == ModeCommit {
				r, g, b = sampleCatmullRom(src, sx, sy)
			} else {
				r, g, b = src.At(int(math.Floor(sx)), int(math.Floor(sy)))
			}
			out.Set(x, y, r, g, b)
		}
	}
	return out, nil
}

// sampleCatmullRom samples the buffer at a fractional position with the
// Catmull-Rom cubic, clamping both the support taps at the image edge and
// the interpolated value (cubics overshoot near hard edges).
func sampleCatmullRom(src *imaging.Buffer, fx, fy float64) (float32, float32, float32) {
	x0 := int(math.Floor(fx - 0.5))
	y0 := int(math.Floor(fy - 0.5))
	tx := fx - 0.5 - float64(x0)
	ty := fy - 0.5 - float64(y0)

	var wx, wy [4]float64
	for i := 0; i < 4; i++ {
		wx[i] = catmullRomWeight(float64(i-1) - tx)
		wy[i] = catmullRomWeight(float64(i-1) - ty)
	}

	var r, g, b float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			w := wx[i] * wy[j]
			if w == 0 {
				continue
			}
			pr, pg, pb := src.At(x0+i-1, y0+j-1)
			r += w * float64(pr)
			g += w * float64(pg)
			b += w * float64(pb)
		}
	}
	return clamp01f(r), clamp01f(g), clamp01f(b)
}

// catmullRomWeight is the Catmull-Rom kernel (B=0, C=0.5), support 2.
func catmullRomWeight(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return 1.5*t*t*t - 2.5*t*t + 1
	case t < 2:
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	default:
		return 0
	}
}

func clamp01f(v float64) float32 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}

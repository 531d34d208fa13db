// Sharpening stage: unsharp mask over a direct (non-separable) Gaussian
// blur, so the blur at any pixel reads at most SharpenReach neighbors and
// tile borders of that width reproduce the untiled result exactly.
package filter

import (
	"math"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
)

// SharpenReach returns the pixel reach of the unsharp mask for the given
// parameters, zero when the stage is disabled.
func SharpenReach(p edit.SharpenParams) int {
	if p.Amount <= 0 || p.Radius <= 0 {
		return 0
	}
	return int(math.Ceil(2 * p.Radius))
}

// ApplySharpen runs the unsharp mask in place.
func ApplySharpen(buf *imaging.Buffer, p edit.SharpenParams) {
	reach := SharpenReach(p)
	if reach == 0 || buf.Empty() {
		return
	}

	sigma := p.Radius
	size := 2*reach + 1
	kernel := make([]float64, size*size)
	var ksum float64
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			v := math.Exp(-float64(dx*dx+dy*dy) / (2 * sigma * sigma))
			kernel[(dy+reach)*size+(dx+reach)] = v
			ksum += v
		}
	}
	for i := range kernel {
		kernel[i] /= ksum
	}

	src := buf.Clone()
	for y := 0; y < buf.H; y++ {
		for x := 0; x < buf.W; x++ {
			var br, bg, bb float64
			for dy := -reach; dy <= reach; dy++ {
				for dx := -reach; dx <= reach; dx++ {
					k := kernel[(dy+reach)*size+(dx+reach)]
					r, g, b := src.At(x+dx, y+dy)
					br += k * float64(r)
					bg += k * float64(g)
					bb += k * float64(b)
				}
			}
			r, g, b := src.At(x, y)
			buf.Set(x, y,
				sharpenSample(float64(r), br, p),
				sharpenSample(float64(g), bg, p),
				sharpenSample(float64(b), bb, p))
		}
	}
}

func sharpenSample(orig, blurred float64, p edit.SharpenParams) float32 {
	d := orig - blurred
	if math.Abs(d) <= p.Threshold {
		d = 0
	}
	v := orig + p.Amount*d
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}

// Auto-exposure heuristics: histogram-driven starting values for a freshly
// opened image.
package filter

import (
	"rawroom/internal/edit"
	"rawroom/internal/imaging"
)

// AutoExposure analyzes mean luminance and returns s with recommended
// exposure, levels and saturation filled in. Cameras typically underexpose
// RAW data by about a stop to protect highlights; the default boost
// counteracts that, scaled back for images that are already bright.
func AutoExposure(buf *imaging.Buffer, s edit.State) edit.State {
	if buf.Empty() {
		return s
	}
	var sum float64
	n := buf.W * buf.H
	for i := 0; i < n; i++ {
		r := float64(buf.Pix[i*imaging.Channels])
		g := float64(buf.Pix[i*imaging.Channels+1])
		b := float64(buf.Pix[i*imaging.Channels+2])
		sum += lumR*r + lumG*g + lumB*b
	}
	avg := sum / float64(n)

	exposure := 1.25
	switch {
	case avg > 0.6:
		exposure = 0.5
	case avg > 0.3:
		exposure = 1.0
	}

	s.Exposure = exposure
	s.Blacks = 0.08
	s.Whites = 0.92
	s.Saturation = 1.10
	return s.Normalize()
}

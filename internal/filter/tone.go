// Tonal stage: exposure, contrast, levels, shadow/highlight recovery and
// saturation, in that order, with a clamp to [0,1] at the end.
package filter

import (
	"math"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
	"rawroom/internal/metrics"
)

// Rec.709 luminance coefficients.
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// ApplyTone runs the tonal stage in place and returns clip statistics for
// the processed region. The stage never emits out-of-range or non-finite
// samples: anything the operators push outside [0,1] is counted and
// clamped before the next stage reads it.
func ApplyTone(buf *imaging.Buffer, s edit.State) metrics.ClipStats {
	gain := math.Pow(2, s.Exposure)
	denom := s.Whites - s.Blacks
	if math.Abs(denom) < 1e-6 {
		denom = 1e-6
	}
	applyExposure := s.Exposure != 0
	applyContrast := s.Contrast != 1
	applyLevels := s.Blacks != 0 || s.Whites != 1
	applyToneEQ := s.Shadows != 0 || s.Highlights != 0
	applySaturation := s.Saturation != 1

	var clippedLo, clippedHi int
	var mean float64
	n := len(buf.Pix)
	for i := 0; i < n; i += imaging.Channels {
		r := float64(buf.Pix[i])
		g := float64(buf.Pix[i+1])
		b := float64(buf.Pix[i+2])

		if applyExposure {
			r *= gain
			g *= gain
			b *= gain
		}
		if applyContrast {
			r = (r-0.5)*s.Contrast + 0.5
			g = (g-0.5)*s.Contrast + 0.5
			b = (b-0.5)*s.Contrast + 0.5
		}
		if applyLevels {
			r = (r - s.Blacks) / denom
			g = (g - s.Blacks) / denom
			b = (b - s.Blacks) / denom
		}
		if applyToneEQ {
			lum := lumR*r + lumG*g + lumB*b
			if lum < 0 {
				lum = 0
			} else if lum > 1 {
				lum = 1
			}
			if s.Shadows != 0 {
				mask := (1 - lum) * (1 - lum)
				r += s.Shadows * mask * r
				g += s.Shadows * mask * g
				b += s.Shadows * mask * b
			}
			if s.Highlights != 0 {
				mask := lum * lum
				r += s.Highlights * mask * (1 - r)
				g += s.Highlights * mask * (1 - g)
				b += s.Highlights * mask * (1 - b)
			}
		}
		if applySaturation {
			lum := lumR*r + lumG*g + lumB*b
			r = lum + (r-lum)*s.Saturation
			g = lum + (g-lum)*s.Saturation
			b = lum + (b-lum)*s.Saturation
		}

		buf.Pix[i] = clampSample(r, &clippedLo, &clippedHi)
		buf.Pix[i+1] = clampSample(g, &clippedLo, &clippedHi)
		buf.Pix[i+2] = clampSample(b, &clippedLo, &clippedHi)
		mean += float64(buf.Pix[i]) + float64(buf.Pix[i+1]) + float64(buf.Pix[i+2])
	}

	if n == 0 {
		return metrics.ClipStats{}
	}
	return metrics.ClipStats{
		PctShadowsClipped:    float64(clippedLo) / float64(n) * 100,
		PctHighlightsClipped: float64(clippedHi) / float64(n) * 100,
		Mean:                 mean / float64(n),
	}
}

// clampSample clamps to [0,1], counting out-of-range samples. Non-finite
// values are a computation outcome, not an error: they clamp to 0.
func clampSample(v float64, lo, hi *int) float32 {
	if math.IsNaN(v) {
		*lo++
		return 0
	}
	if v < 0 {
		*lo++
		return 0
	}
	if v > 1 {
		*hi++
		return 1
	}
	return float32(v)
}

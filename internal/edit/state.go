// Non-destructive edit state: the immutable parameter snapshot every
// generation of pipeline work is bound to.
package edit

import "math"

// DenoiseMethod selects the noise-reduction algorithm. The choice changes
// only the internal algorithm, never the external contract.
type DenoiseMethod string

const (
	DenoiseBilateral DenoiseMethod = "bilateral"
	DenoiseNLMeans   DenoiseMethod = "nlmeans"
	DenoiseTV        DenoiseMethod = "tv"
)

// Valid reports whether the method names a known algorithm.
func (m DenoiseMethod) Valid() bool {
	switch m {
	case DenoiseBilateral, DenoiseNLMeans, DenoiseTV:
		return true
	}
	return false
}

// SharpenParams configures the unsharp-mask stage.
type SharpenParams struct {
	Amount    float64 // 0..5, 0 disables the stage
	Radius    float64 // 0..10 pixels
	Threshold float64 // 0..1, minimum contrast to sharpen
}

// DenoiseParams configures the noise-reduction stage.
type DenoiseParams struct {
	Method   DenoiseMethod
	Strength float64 // 0..1, 0 disables the stage
}

// CropParams is a crop rectangle normalized to [0,1] of the source image.
type CropParams struct {
	X, Y, W, H float64
}

// IsFull reports whether the crop covers the entire image.
func (c CropParams) IsFull() bool {
	return c.X == 0 && c.Y == 0 && c.W == 1 && c.H == 1
}

// State is one complete edit snapshot. It is a value type: every UI change
// replaces the whole snapshot, so in-flight workers always read a
// consistent set of parameters.
type State struct {
	Exposure   float64 // stops, -5..5
	Contrast   float64 // 0.25..4, 1 is neutral
	Blacks     float64 // 0..0.5
	Whites     float64 // 0.5..1.5
	Shadows    float64 // -1..1
	Highlights float64 // -1..1
	Saturation float64 // 0..3, 1 is neutral

	Sharpen  SharpenParams
	Denoise  DenoiseParams
	Crop     CropParams
	Rotation float64 // degrees, -45..45 at 0.1 resolution
}

// Default returns the neutral state applied to a freshly opened image.
func Default() State {
	return State{
		Contrast:   1,
		Whites:     1,
		Saturation: 1,
		Sharpen:    SharpenParams{Radius: 1},
		Denoise:    DenoiseParams{Method: DenoiseBilateral},
		Crop:       CropParams{W: 1, H: 1},
	}
}

// Normalize returns a copy with every parameter clamped into its documented
// range, the rotation quantized to 0.1 degrees, and non-finite values reset
// to neutral. Call it once at the submission boundary.
func (s State) Normalize() State {
	s.Exposure = clamp(finiteOr(s.Exposure, 0), -5, 5)
	s.Contrast = clamp(finiteOr(s.Contrast, 1), 0.25, 4)
	s.Blacks = clamp(finiteOr(s.Blacks, 0), 0, 0.5)
	s.Whites = clamp(finiteOr(s.Whites, 1), 0.5, 1.5)
	s.Shadows = clamp(finiteOr(s.Shadows, 0), -1, 1)
	s.Highlights = clamp(finiteOr(s.Highlights, 0), -1, 1)
	s.Saturation = clamp(finiteOr(s.Saturation, 1), 0, 3)

	s.Sharpen.Amount = clamp(finiteOr(s.Sharpen.Amount, 0), 0, 5)
	s.Sharpen.Radius = clamp(finiteOr(s.Sharpen.Radius, 1), 0, 10)
	s.Sharpen.Threshold = clamp(finiteOr(s.Sharpen.Threshold, 0), 0, 1)

	if !s.Denoise.Method.Valid() {
		s.Denoise.Method = DenoiseBilateral
	}
	s.Denoise.Strength = clamp(finiteOr(s.Denoise.Strength, 0), 0, 1)

	s.Crop.X = clamp(finiteOr(s.Crop.X, 0), 0, 1)
	s.Crop.Y = clamp(finiteOr(s.Crop.Y, 0), 0, 1)
	s.Crop.W = clamp(finiteOr(s.Crop.W, 1), 0, 1-s.Crop.X)
	s.Crop.H = clamp(finiteOr(s.Crop.H, 1), 0, 1-s.Crop.Y)

	s.Rotation = math.Round(clamp(finiteOr(s.Rotation, 0), -45, 45)*10) / 10
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

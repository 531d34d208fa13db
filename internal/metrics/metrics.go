// Quality metrics computed over linear float buffers.
package metrics

import (
	"fmt"
	"math"

	"rawroom/internal/imaging"
)

// ClipStats summarizes how much the tone stage pushed samples out of range
// before clamping. Percentages are over all samples, not pixels.
type ClipStats struct {
	PctShadowsClipped    float64
	PctHighlightsClipped float64
	Mean                 float64
}

// Merge combines stats from two regions weighted by sample count.
func (c ClipStats) Merge(other ClipStats, samples, otherSamples int) ClipStats {
	total := samples + otherSamples
	if total == 0 {
		return ClipStats{}
	}
	w1 := float64(samples) / float64(total)
	w2 := float64(otherSamples) / float64(total)
	return ClipStats{
		PctShadowsClipped:    c.PctShadowsClipped*w1 + other.PctShadowsClipped*w2,
		PctHighlightsClipped: c.PctHighlightsClipped*w1 + other.PctHighlightsClipped*w2,
		Mean:                 c.Mean*w1 + other.Mean*w2,
	}
}

// Metric is a full-reference quality measure between two buffers.
type Metric interface {
	Name() string
	Calculate(original, processed *imaging.Buffer) (float64, error)
}

// Evaluator holds the registered metrics.
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates an evaluator with the default metrics registered.
func NewEvaluator() *Evaluator {
	e := &Evaluator{metrics: make(map[string]Metric)}
	e.Register(MSE{})
	e.Register(PSNR{})
	return e
}

// Register adds a metric under its own name.
func (e *Evaluator) Register(m Metric) {
	e.metrics[m.Name()] = m
}

// Calculate computes a single named metric.
func (e *Evaluator) Calculate(name string, original, processed *imaging.Buffer) (float64, error) {
	m, ok := e.metrics[name]
	if !ok {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return m.Calculate(original, processed)
}

// CalculateAll computes every registered metric, skipping any that fail.
func (e *Evaluator) CalculateAll(original, processed *imaging.Buffer) map[string]float64 {
	out := make(map[string]float64, len(e.metrics))
	for name, m := range e.metrics {
		if v, err := m.Calculate(original, processed); err == nil {
			out[name] = v
		}
	}
	return out
}

// MSE is the mean squared error over all samples, in the [0,1] domain.
type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) Calculate(original, processed *imaging.Buffer) (float64, error) {
	if original.Empty() || processed.Empty() {
		return 0, fmt.Errorf("empty buffer")
	}
	if original.W != processed.W || original.H != processed.H {
		return 0, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d",
			original.W, original.H, processed.W, processed.H)
	}
	var sum float64
	for i := range original.Pix {
		d := float64(original.Pix[i]) - float64(processed.Pix[i])
		sum += d * d
	}
	mse := sum / float64(len(original.Pix))
	if math.IsNaN(mse) || math.IsInf(mse, 0) {
		return 0, fmt.Errorf("non-finite mse")
	}
	return mse, nil
}

// PSNR is the peak signal-to-noise ratio in dB, capped at 100 for
// identical inputs.
type PSNR struct{}

func (PSNR) Name() string { return "psnr" }

func (PSNR) Calculate(original, processed *imaging.Buffer) (float64, error) {
	mse, err := (MSE{}).Calculate(original, processed)
	if err != nil {
		return 0, err
	}
	if mse < 1e-15 {
		return 100, nil
	}
	psnr := -10 * math.Log10(mse)
	if math.IsNaN(psnr) || math.IsInf(psnr, 0) {
		return 100, nil
	}
	if psnr > 100 {
		return 100, nil
	}
	if psnr < 0 {
		return 0, nil
	}
	return psnr, nil
}

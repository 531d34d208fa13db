// Ordered filter chain. Stage order is a correctness property, not a
// convention: tone -> shadow/highlight recovery -> denoise -> sharpen ->
// geometry, each stage clamped before the next reads it.
package filter

import (
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
	"rawroom/internal/metrics"
)

// Mode selects algorithm fidelity. Interactive and commit outputs agree in
// composition and tonal result; they may differ only by resampling quality
// in the geometric stage.
type Mode int

const (
	// ModeInteractive favors speed: nearest-neighbor geometric resampling.
	ModeInteractive Mode = iota
	// ModeCommit favors quality: Catmull-Rom geometric resampling. Used
	// for final export.
	ModeCommit
)

func (m Mode) String() string {
	if m == ModeCommit {
		return "commit"
	}
	return "interactive"
}

// KernelRadius returns the composed pixel reach of the kernel stages for
// the given state. Sharpening reads denoised pixels, so the reaches add:
// tile overlap borders of at least this width make trimmed tile interiors
// identical to an untiled pass.
func KernelRadius(s edit.State) int {
	return DenoiseReach(s.Denoise) + SharpenReach(s.Sharpen)
}

// Chain applies the fixed stage order to pixel buffers. It holds no pixel
// state itself, so one Chain is safely shared across worker goroutines.
type Chain struct {
	logger *logrus.Logger
}

// NewChain creates a chain logging through the given logger.
func NewChain(logger *logrus.Logger) *Chain {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Chain{logger: logger}
}

// ProcessTile runs the dimension-preserving stages (tone, recovery,
// denoise, sharpen) over one tile, border included, and returns a buffer
// of identical dimensions. The input is not modified.
func (c *Chain) ProcessTile(tile *imaging.Buffer, s edit.State, mode Mode) (*imaging.Buffer, metrics.ClipStats, error) {
	if tile.Empty() {
		return nil, metrics.ClipStats{}, &ValidationError{Reason: "empty tile buffer"}
	}
	if !s.Denoise.Method.Valid() {
		return nil, metrics.ClipStats{}, &ValidationError{Reason: fmt.Sprintf("unknown denoise method %q", s.Denoise.Method)}
	}

	start := time.Now()
	out := tile.Clone()
	stats := ApplyTone(out, s)
	ApplyDenoise(out, s.Denoise)
	ApplySharpen(out, s.Sharpen)

	c.logger.WithFields(logrus.Fields{
		"tile":     fmt.Sprintf("%dx%d", tile.W, tile.H),
		"mode":     mode.String(),
		"duration": time.Since(start),
	}).Trace("tile processed")
	return out, stats, nil
}

// Apply runs the full five-stage chain over an entire buffer: the tile
// stages followed by the geometric transform. This is the single-pass path
// used by export and by untiled processing.
func (c *Chain) Apply(src *imaging.Buffer, s edit.State, mode Mode) (*imaging.Buffer, metrics.ClipStats, error) {
	out, stats, err := c.ProcessTile(src, s, mode)
	if err != nil {
		return nil, stats, err
	}
	if GeometryIdentity(s) {
		return out, stats, nil
	}
	out, err = ApplyGeometry(out, image.Point{}, out.W, out.H, s, mode)
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

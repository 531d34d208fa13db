// Viewport region-of-interest in source image coordinates.
package imaging

import (
	"fmt"
	"image"
)

// ROI describes the source-image subregion currently relevant for
// processing plus the scale the viewport displays it at. Scale 1 means
// source pixels map 1:1 to display pixels; 0 is treated as 1.
type ROI struct {
	Rect  image.Rectangle
	Scale float64
}

// FullImage returns an ROI covering the whole buffer at scale 1.
func FullImage(b *Buffer) ROI {
	return ROI{Rect: b.Bounds(), Scale: 1}
}

// EffectiveScale normalizes the display scale for downstream use.
func (r ROI) EffectiveScale() float64 {
	if r.Scale <= 0 {
		return 1
	}
	return r.Scale
}

// Validate checks the ROI against the bounds of the image it refers to.
func (r ROI) Validate(bounds image.Rectangle) error {
	if r.Rect.Dx() <= 0 || r.Rect.Dy() <= 0 {
		return fmt.Errorf("empty region of interest %v", r.Rect)
	}
	if !r.Rect.In(bounds) {
		return fmt.Errorf("region of interest %v outside image bounds %v", r.Rect, bounds)
	}
	return nil
}

// Noise-reduction stage: bilateral (chroma-aware), non-local means, or
// total-variation, selected by the edit state.
package filter

import (
	"math"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
)

// DenoiseReach returns how far, in pixels, the configured denoiser can
// read from an output pixel. The tile scheduler uses it to size overlap
// borders so trimmed tile interiors are identical to an untiled pass.
func DenoiseReach(p edit.DenoiseParams) int {
	if p.Strength <= 0 {
		return 0
	}
	switch p.Method {
	case edit.DenoiseNLMeans:
		// search radius plus the 3x3 patch half-width
		return nlmSearchRadius(p.Strength) + 1
	case edit.DenoiseTV:
		// information travels one pixel per iteration
		return tvIterations(p.Strength)
	default:
		return bilateralRadius(p.Strength)
	}
}

// ApplyDenoise runs the configured denoiser in place.
func ApplyDenoise(buf *imaging.Buffer, p edit.DenoiseParams) {
	if p.Strength <= 0 || buf.Empty() {
		return
	}
	switch p.Method {
	case edit.DenoiseNLMeans:
		denoiseNLMeans(buf, p.Strength)
	case edit.DenoiseTV:
		denoiseTV(buf, p.Strength)
	default:
		denoiseBilateral(buf, p.Strength)
	}
	clampBuffer(buf)
}

func bilateralRadius(strength float64) int {
	return 1 + int(math.Round(3*strength))
}

func nlmSearchRadius(strength float64) int {
	return 1 + int(math.Round(3*strength))
}

func tvIterations(strength float64) int {
	return 1 + int(math.Round(15*strength))
}

// denoiseBilateral filters luminance and chroma planes separately: the
// range kernel is driven by luminance difference in both cases, but the
// chroma planes get a wider range sigma since chroma noise dominates in
// shadow regions and chroma blur is far less visible than luma blur.
func denoiseBilateral(buf *imaging.Buffer, strength float64) {
	w, h := buf.W, buf.H
	y, cb, cr := splitPlanes(buf)

	radius := bilateralRadius(strength)
	sigmaS := float64(radius) * 0.75
	sigmaRLuma := 0.08 + 0.12*strength
	sigmaRChroma := 2 * sigmaRLuma

	spatial := make([]float64, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*(2*radius+1)+(dx+radius)] = math.Exp(-d2 / (2 * sigmaS * sigmaS))
		}
	}

	outY := make([]float32, len(y))
	outCb := make([]float32, len(cb))
	outCr := make([]float32, len(cr))
	twoLuma := 2 * sigmaRLuma * sigmaRLuma
	twoChroma := 2 * sigmaRChroma * sigmaRChroma

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			center := float64(y[py*w+px])
			var sumY, wY, sumCb, sumCr, wC float64
			for dy := -radius; dy <= radius; dy++ {
				sy := clampInt(py+dy, 0, h-1)
				for dx := -radius; dx <= radius; dx++ {
					sx := clampInt(px+dx, 0, w-1)
					i := sy*w + sx
					ws := spatial[(dy+radius)*(2*radius+1)+(dx+radius)]
					diff := float64(y[i]) - center
					wl := ws * math.Exp(-diff*diff/twoLuma)
					wc := ws * math.Exp(-diff*diff/twoChroma)
					sumY += wl * float64(y[i])
					wY += wl
					sumCb += wc * float64(cb[i])
					sumCr += wc * float64(cr[i])
					wC += wc
				}
			}
			o := py*w + px
			outY[o] = float32(sumY / wY)
			outCb[o] = float32(sumCb / wC)
			outCr[o] = float32(sumCr / wC)
		}
	}
	mergePlanes(buf, outY, outCb, outCr)
}

// denoiseNLMeans averages pixels whose 3x3 luminance patches look alike,
// searching a window around each output pixel.
func denoiseNLMeans(buf *imaging.Buffer, strength float64) {
	w, h := buf.W, buf.H
	y, _, _ := splitPlanes(buf)
	search := nlmSearchRadius(strength)
	hh := 0.05 + 0.15*strength
	norm := 1.0 / (hh * hh * 9)

	src := buf.Clone()
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			var sumR, sumG, sumB, sumW float64
			for dy := -search; dy <= search; dy++ {
				for dx := -search; dx <= search; dx++ {
					var d2 float64
					for ky := -1; ky <= 1; ky++ {
						for kx := -1; kx <= 1; kx++ {
							a := planeAt(y, w, h, px+kx, py+ky)
							b := planeAt(y, w, h, px+dx+kx, py+dy+ky)
							d := float64(a - b)
							d2 += d * d
						}
					}
					wgt := math.Exp(-d2 * norm)
					r, g, b := src.At(px+dx, py+dy)
					sumR += wgt * float64(r)
					sumG += wgt * float64(g)
					sumB += wgt * float64(b)
					sumW += wgt
				}
			}
			buf.Set(px, py, float32(sumR/sumW), float32(sumG/sumW), float32(sumB/sumW))
		}
	}
}

// denoiseTV runs explicit total-variation gradient descent per channel,
// with a data-fidelity term that weakens as strength grows.
func denoiseTV(buf *imaging.Buffer, strength float64) {
	const tau = 0.125
	const eps = 1e-6
	iters := tvIterations(strength)
	lambda := 0.05 + (1-strength)*1.0

	w, h := buf.W, buf.H
	orig := buf.Clone()
	px := make([]float64, w*h)
	py := make([]float64, w*h)
	next := make([]float32, w*h)

	for ch := 0; ch < imaging.Channels; ch++ {
		u := make([]float32, w*h)
		f := make([]float64, w*h)
		for i := 0; i < w*h; i++ {
			u[i] = buf.Pix[i*imaging.Channels+ch]
			f[i] = float64(orig.Pix[i*imaging.Channels+ch])
		}
		for it := 0; it < iters; it++ {
			for yy := 0; yy < h; yy++ {
				for xx := 0; xx < w; xx++ {
					i := yy*w + xx
					ux := float64(planeAt(u, w, h, xx+1, yy) - u[i])
					uy := float64(planeAt(u, w, h, xx, yy+1) - u[i])
					mag := math.Sqrt(ux*ux + uy*uy + eps)
					px[i] = ux / mag
					py[i] = uy / mag
				}
			}
			for yy := 0; yy < h; yy++ {
				for xx := 0; xx < w; xx++ {
					i := yy*w + xx
					div := px[i] + py[i]
					if xx > 0 {
						div -= px[i-1]
					}
					if yy > 0 {
						div -= py[i-w]
					}
					v := float64(u[i]) + tau*(div+lambda*(f[i]-float64(u[i])))
					next[i] = float32(v)
				}
			}
			copy(u, next)
		}
		for i := 0; i < w*h; i++ {
			buf.Pix[i*imaging.Channels+ch] = u[i]
		}
	}
}

func splitPlanes(buf *imaging.Buffer) (y, cb, cr []float32) {
	n := buf.W * buf.H
	y = make([]float32, n)
	cb = make([]float32, n)
	cr = make([]float32, n)
	for i := 0; i < n; i++ {
		r := buf.Pix[i*imaging.Channels]
		g := buf.Pix[i*imaging.Channels+1]
		b := buf.Pix[i*imaging.Channels+2]
		l := float32(lumR)*r + float32(lumG)*g + float32(lumB)*b
		y[i] = l
		cb[i] = b - l
		cr[i] = r - l
	}
	return y, cb, cr
}

func mergePlanes(buf *imaging.Buffer, y, cb, cr []float32) {
	n := buf.W * buf.H
	for i := 0; i < n; i++ {
		l := y[i]
		r := l + cr[i]
		b := l + cb[i]
		g := (l - float32(lumR)*r - float32(lumB)*b) / float32(lumG)
		buf.Pix[i*imaging.Channels] = r
		buf.Pix[i*imaging.Channels+1] = g
		buf.Pix[i*imaging.Channels+2] = b
	}
}

func planeAt(p []float32, w, h, x, y int) float32 {
	return p[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampBuffer forces every sample back into [0,1], mapping NaN to 0.
func clampBuffer(buf *imaging.Buffer) {
	for i, v := range buf.Pix {
		switch {
		case math.IsNaN(float64(v)), v < 0:
			buf.Pix[i] = 0
		case v > 1:
			buf.Pix[i] = 1
		}
	}
}

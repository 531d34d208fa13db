// Image loading: decode files into the linear float buffer the pipeline
// treats as read-only input.
package io

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"rawroom/internal/imaging"
)

// Loader handles decode and proxy generation for source images.
type Loader struct {
	logger *logrus.Logger
}

// NewLoader creates an image loader.
func NewLoader(logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{logger: logger}
}

var supportedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Supported reports whether the file extension names a decodable format.
func (l *Loader) Supported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Load decodes path into a linear RGB float buffer normalized to [0,1].
func (l *Loader) Load(path string) (*imaging.Buffer, error) {
	if !l.Supported(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image: %s", path)
	}
	defer mat.Close()

	buf, err := matToBuffer(mat)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  buf.W,
		"height": buf.H,
	}).Info("image loaded")
	return buf, nil
}

// Proxy returns a downscaled copy whose longest side is at most maxDim,
// for preview work on very large sources. The original buffer is returned
// unchanged if it already fits.
func (l *Loader) Proxy(buf *imaging.Buffer, maxDim int) (*imaging.Buffer, error) {
	if maxDim <= 0 || (buf.W <= maxDim && buf.H <= maxDim) {
		return buf, nil
	}
	scale := float64(maxDim) / float64(max(buf.W, buf.H))
	w := int(math.Round(float64(buf.W) * scale))
	h := int(math.Round(float64(buf.H) * scale))
	out, err := imaging.Resize(buf, w, h, true)
	if err != nil {
		return nil, fmt.Errorf("proxy downscale: %w", err)
	}
	l.logger.WithFields(logrus.Fields{
		"from": fmt.Sprintf("%dx%d", buf.W, buf.H),
		"to":   fmt.Sprintf("%dx%d", w, h),
	}).Debug("proxy generated")
	return out, nil
}

// matToBuffer converts an 8-bit BGR Mat into a linear RGB float buffer.
func matToBuffer(mat gocv.Mat) (*imaging.Buffer, error) {
	if mat.Channels() != 3 || mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("unexpected mat type %v with %d channels", mat.Type(), mat.Channels())
	}
	w, h := mat.Cols(), mat.Rows()
	buf, err := imaging.NewBuffer(w, h)
	if err != nil {
		return nil, err
	}
	data := mat.ToBytes()
	if len(data) < w*h*3 {
		return nil, fmt.Errorf("short pixel data: %d bytes for %dx%d", len(data), w, h)
	}
	for i := 0; i < w*h; i++ {
		// OpenCV stores BGR.
		buf.Pix[i*imaging.Channels] = float32(data[i*3+2]) / 255
		buf.Pix[i*imaging.Channels+1] = float32(data[i*3+1]) / 255
		buf.Pix[i*imaging.Channels+2] = float32(data[i*3]) / 255
	}
	return buf, nil
}

// bufferToMat converts a float buffer back to an 8-bit BGR Mat for encoding.
func bufferToMat(buf *imaging.Buffer) (gocv.Mat, error) {
	if buf.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty buffer")
	}
	data := make([]byte, buf.W*buf.H*3)
	for i := 0; i < buf.W*buf.H; i++ {
		data[i*3] = quantize(buf.Pix[i*imaging.Channels+2])
		data[i*3+1] = quantize(buf.Pix[i*imaging.Channels+1])
		data[i*3+2] = quantize(buf.Pix[i*imaging.Channels])
	}
	return gocv.NewMatFromBytes(buf.H, buf.W, gocv.MatTypeCV8UC3, data)
}

func quantize(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return byte(v*255 + 0.5)
}

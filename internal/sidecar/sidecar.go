// Sidecar persistence: edit states stored as JSON records next to the
// image, in a hidden directory local to it.
package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"rawroom/internal/edit"
)

// Dir is the per-folder directory sidecar files live in.
const Dir = ".rawroom"

// Version is written into every sidecar envelope.
const Version = "1.0"

// Record is the on-disk envelope around the settings.
type Record struct {
	Version      string   `json:"version"`
	LastModified float64  `json:"last_modified"`
	RawPath      string   `json:"raw_path"`
	Settings     Settings `json:"settings"`
}

// Settings is the structured edit-state record. Field shape is the
// interchange contract: a structurally equivalent EditState must survive a
// save/load round trip unchanged.
type Settings struct {
	Exposure   float64 `json:"exposure"`
	Contrast   float64 `json:"contrast"`
	Blacks     float64 `json:"blacks"`
	Whites     float64 `json:"whites"`
	Shadows    float64 `json:"shadows"`
	Highlights float64 `json:"highlights"`
	Saturation float64 `json:"saturation"`

	SharpenAmount    float64 `json:"sharpen_amount"`
	SharpenRadius    float64 `json:"sharpen_radius"`
	SharpenThreshold float64 `json:"sharpen_threshold"`

	DenoiseMethod   string  `json:"denoise_method"`
	DenoiseStrength float64 `json:"denoise_strength"`

	CropX float64 `json:"crop_x"`
	CropY float64 `json:"crop_y"`
	CropW float64 `json:"crop_w"`
	CropH float64 `json:"crop_h"`

	Rotation float64 `json:"rotation"`

	// Rating is gallery metadata the pipeline never interprets; it is
	// carried through a load/save cycle untouched.
	Rating int `json:"rating"`
}

// FromState converts an edit state to its sidecar record form.
func FromState(s edit.State) Settings {
	return Settings{
		Exposure:         s.Exposure,
		Contrast:         s.Contrast,
		Blacks:           s.Blacks,
		Whites:           s.Whites,
		Shadows:          s.Shadows,
		Highlights:       s.Highlights,
		Saturation:       s.Saturation,
		SharpenAmount:    s.Sharpen.Amount,
		SharpenRadius:    s.Sharpen.Radius,
		SharpenThreshold: s.Sharpen.Threshold,
		DenoiseMethod:    string(s.Denoise.Method),
		DenoiseStrength:  s.Denoise.Strength,
		CropX:            s.Crop.X,
		CropY:            s.Crop.Y,
		CropW:            s.Crop.W,
		CropH:            s.Crop.H,
		Rotation:         s.Rotation,
	}
}

// State converts the record back to an edit state.
func (s Settings) State() edit.State {
	return edit.State{
		Exposure:   s.Exposure,
		Contrast:   s.Contrast,
		Blacks:     s.Blacks,
		Whites:     s.Whites,
		Shadows:    s.Shadows,
		Highlights: s.Highlights,
		Saturation: s.Saturation,
		Sharpen: edit.SharpenParams{
			Amount:    s.SharpenAmount,
			Radius:    s.SharpenRadius,
			Threshold: s.SharpenThreshold,
		},
		Denoise: edit.DenoiseParams{
			Method:   edit.DenoiseMethod(s.DenoiseMethod),
			Strength: s.DenoiseStrength,
		},
		Crop:     edit.CropParams{X: s.CropX, Y: s.CropY, W: s.CropW, H: s.CropH},
		Rotation: s.Rotation,
	}
}

// Store reads and writes sidecar files.
type Store struct {
	logger *logrus.Logger
}

// NewStore creates a sidecar store.
func NewStore(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{logger: logger}
}

// Path returns the sidecar path for an image file.
func (st *Store) Path(imagePath string) string {
	dir := filepath.Dir(imagePath)
	return filepath.Join(dir, Dir, filepath.Base(imagePath)+".json")
}

// Save writes the edit state for imagePath, creating the sidecar directory
// if needed. Fields the pipeline does not edit (the rating) are preserved
// from any existing sidecar rather than reset.
func (st *Store) Save(imagePath string, state edit.State) error {
	path := st.Path(imagePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sidecar dir: %w", err)
	}
	settings := FromState(state)
	if prev, err := readRecord(path); err == nil {
		settings.Rating = prev.Settings.Rating
	}
	rec := Record{
		Version:      Version,
		LastModified: float64(time.Now().UnixMilli()) / 1000,
		RawPath:      imagePath,
		Settings:     settings,
	}
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	st.logger.WithFields(logrus.Fields{
		"image":   imagePath,
		"sidecar": path,
	}).Debug("sidecar saved")
	return nil
}

// Load reads the edit state for imagePath. A missing sidecar is not an
// error: found is false and the caller should use defaults.
func (st *Store) Load(imagePath string) (state edit.State, found bool, err error) {
	path := st.Path(imagePath)
	rec, err := readRecord(path)
	if errors.Is(err, fs.ErrNotExist) {
		return edit.Default(), false, nil
	}
	if err != nil {
		return edit.Default(), false, fmt.Errorf("sidecar %s: %w", path, err)
	}
	return rec.Settings.State(), true, nil
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Rename moves a sidecar along with its image when the image is renamed.
// Missing sidecars are ignored.
func (st *Store) Rename(oldImagePath, newImagePath string) error {
	oldPath := st.Path(oldImagePath)
	if _, err := os.Stat(oldPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	newPath := st.Path(newImagePath)
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("create sidecar dir: %w", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename sidecar: %w", err)
	}
	st.logger.WithFields(logrus.Fields{
		"from": oldPath,
		"to":   newPath,
	}).Debug("sidecar renamed")
	return nil
}

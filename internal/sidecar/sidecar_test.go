package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rawroom/internal/edit"
)

func sampleState() edit.State {
	s := edit.Default()
	s.Exposure = 1.25
	s.Contrast = 1.1
	s.Blacks = 0.08
	s.Whites = 0.92
	s.Shadows = 0.3
	s.Highlights = -0.2
	s.Saturation = 1.1
	s.Sharpen = edit.SharpenParams{Amount: 1.5, Radius: 2, Threshold: 0.02}
	s.Denoise = edit.DenoiseParams{Method: edit.DenoiseNLMeans, Strength: 0.4}
	s.Crop = edit.CropParams{X: 0.1, Y: 0.2, W: 0.5, H: 0.6}
	s.Rotation = -7.5
	return s
}

func TestSaveLoadRoundTripIsLossless(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "shot.cr2")
	st := NewStore(nil)
	want := sampleState()

	require.NoError(t, st.Save(img, want))
	got, found, err := st.Load(img)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestLoadMissingSidecarReturnsDefaults(t *testing.T) {
	t.Parallel()

	st := NewStore(nil)
	got, found, err := st.Load(filepath.Join(t.TempDir(), "nowhere.nef"))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, edit.Default(), got)
}

func TestLoadRejectsCorruptSidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "shot.dng")
	st := NewStore(nil)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, Dir), 0o755))
	require.NoError(t, os.WriteFile(st.Path(img), []byte("{nope"), 0o644))

	_, found, err := st.Load(img)
	require.Error(t, err)
	require.False(t, found)
}

func TestSidecarEnvelopeFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "shot.arw")
	st := NewStore(nil)
	require.NoError(t, st.Save(img, sampleState()))

	data, err := os.ReadFile(st.Path(img))
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, Version, rec.Version)
	require.Equal(t, img, rec.RawPath)
	require.Positive(t, rec.LastModified)
	require.Equal(t, "nlmeans", rec.Settings.DenoiseMethod)
}

func TestSaveKeepsExistingRating(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "shot.cr2")
	st := NewStore(nil)
	require.NoError(t, st.Save(img, sampleState()))

	// Another tool rates the image by editing the sidecar in place.
	data, err := os.ReadFile(st.Path(img))
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	rec.Settings.Rating = 4
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(st.Path(img), data, 0o644))

	// Re-saving edits must not destroy the rating.
	edited := sampleState()
	edited.Exposure = 2
	require.NoError(t, st.Save(img, edited))

	data, err = os.ReadFile(st.Path(img))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, 4, rec.Settings.Rating)
	require.Equal(t, 2.0, rec.Settings.Exposure)
}

func TestPathPlacesSidecarInHiddenDir(t *testing.T) {
	t.Parallel()

	st := NewStore(nil)
	got := st.Path(filepath.Join("photos", "trip", "img.raf"))
	require.Equal(t, filepath.Join("photos", "trip", Dir, "img.raf.json"), got)
}

func TestRenameMovesSidecarWithImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldImg := filepath.Join(dir, "a.cr2")
	newImg := filepath.Join(dir, "sub", "b.cr2")
	require.NoError(t, os.MkdirAll(filepath.Dir(newImg), 0o755))

	st := NewStore(nil)
	want := sampleState()
	require.NoError(t, st.Save(oldImg, want))
	require.NoError(t, st.Rename(oldImg, newImg))

	_, found, err := st.Load(oldImg)
	require.NoError(t, err)
	require.False(t, found)

	got, found, err := st.Load(newImg)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestRenameWithoutSidecarIsNoOp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := NewStore(nil)
	require.NoError(t, st.Rename(filepath.Join(dir, "x.cr2"), filepath.Join(dir, "y.cr2")))
}

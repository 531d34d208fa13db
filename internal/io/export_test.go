package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rawroom/internal/edit"
	"rawroom/internal/imaging"
)

func exportSource(t *testing.T) *imaging.Buffer {
	t.Helper()
	buf, err := imaging.NewBuffer(8, 8)
	require.NoError(t, err)
	buf.Fill(0.4, 0.5, 0.6)
	return buf
}

func TestExportWritesEncodedFile(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.png")
	e := NewExporter(90, nil)
	require.NoError(t, e.Export(exportSource(t), edit.Default(), out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestExportRejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.xyz")
	e := NewExporter(90, nil)
	require.Error(t, e.Export(exportSource(t), edit.Default(), out))
}

func TestNewExporterClampsQuality(t *testing.T) {
	t.Parallel()

	require.Equal(t, 95, NewExporter(0, nil).Quality)
	require.Equal(t, 95, NewExporter(250, nil).Quality)
	require.Equal(t, 80, NewExporter(80, nil).Quality)
}

func TestExportAllCollectsFailuresPerJob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	badFormat := filepath.Join(dir, "bad.xyz")
	badSource := filepath.Join(dir, "empty.png")

	e := NewExporter(90, nil)
	e.Workers = 2
	failures := e.ExportAll([]ExportJob{
		{Source: exportSource(t), State: edit.Default(), OutPath: good},
		{Source: exportSource(t), State: edit.Default(), OutPath: badFormat},
		{Source: nil, State: edit.Default(), OutPath: badSource},
	})

	require.Len(t, failures, 2)
	require.Contains(t, failures, badFormat)
	require.Contains(t, failures, badSource)
	require.NotContains(t, failures, good)
	require.FileExists(t, good)
}

func TestExportAllSequentialByDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := NewExporter(90, nil)
	jobs := []ExportJob{
		{Source: exportSource(t), State: edit.Default(), OutPath: filepath.Join(dir, "a.png")},
		{Source: exportSource(t), State: edit.Default(), OutPath: filepath.Join(dir, "b.png")},
	}
	require.Empty(t, e.ExportAll(jobs))
	require.FileExists(t, filepath.Join(dir, "a.png"))
	require.FileExists(t, filepath.Join(dir, "b.png"))
}

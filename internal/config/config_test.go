package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 256, c.Render.TileSize)
	require.Equal(t, 33*time.Millisecond, c.Render.Debounce)
	require.Equal(t, 0, c.Render.Workers)
	require.Equal(t, 64<<20, c.Render.MaxCanvasPx)
	require.Equal(t, 4096, c.Render.ProxyMaxDim)
	require.Equal(t, 95, c.Export.Quality)
	require.Equal(t, 0, c.Export.Workers)
}

func TestLoadRejectsMissingExplicitConfigFile(t *testing.T) {
	t.Setenv("RAWROOM_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render\ntile_size ="), 0o644))
	t.Setenv("RAWROOM_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RAWROOM_RENDER_TILE_SIZE", "128")
	t.Setenv("RAWROOM_EXPORT_QUALITY", "80")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 128, c.Render.TileSize)
	require.Equal(t, 80, c.Export.Quality)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render]\ntile_size = 64\ndebounce = \"50ms\"\n"), 0o644))
	t.Setenv("RAWROOM_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 64, c.Render.TileSize)
	require.Equal(t, 50*time.Millisecond, c.Render.Debounce)
	// untouched values keep their defaults
	require.Equal(t, 95, c.Export.Quality)
}

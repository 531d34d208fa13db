package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Render RenderConfig
	Export ExportConfig
}

// RenderConfig holds the pipeline tunables.
type RenderConfig struct {
	TileSize    int           `mapstructure:"tile_size"`
	Debounce    time.Duration `mapstructure:"debounce"`
	Workers     int           `mapstructure:"workers"`
	MaxCanvasPx int           `mapstructure:"max_canvas_px"`
	ProxyMaxDim int           `mapstructure:"proxy_max_dim"`
}

// ExportConfig holds encoding settings.
type ExportConfig struct {
	Quality int `mapstructure:"quality"`
	Workers int `mapstructure:"workers"`
}

// Load reads configuration from file and env. Env var overrides use the
// RAWROOM_ prefix (RAWROOM_RENDER_TILE_SIZE and so on).
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("render.tile_size", 256)
	v.SetDefault("render.debounce", 33*time.Millisecond)
	v.SetDefault("render.workers", 0) // 0 = one per CPU core
	v.SetDefault("render.max_canvas_px", 64<<20)
	v.SetDefault("render.proxy_max_dim", 4096)
	v.SetDefault("export.quality", 95)
	v.SetDefault("export.workers", 0) // 0 = sequential

	v.SetConfigType("toml")

	cfgPath := os.Getenv("RAWROOM_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "rawroom"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("RAWROOM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist and parse; the search-path
		// lookup is best effort.
		if cfgPath != "" {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

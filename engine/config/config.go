package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/fini03/vkduck/engine/core"
)

// Config is the editor configuration, persisted as TOML next to the
// executable or wherever the user points it.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Shaders  ShaderConfig   `toml:"shaders"`
	Renderer RendererConfig `toml:"renderer"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type ShaderConfig struct {
	// Directory holding compiled SPIR-V and reflection sidecars.
	Root string `toml:"root"`
	// Watch the root for changes and hot-reload.
	Watch bool `toml:"watch"`
}

type RendererConfig struct {
	// Log level: debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "vkDuck",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Shaders: ShaderConfig{
			Root:  "assets/shaders",
			Watch: true,
		},
		Renderer: RendererConfig{
			LogLevel: "info",
		},
	}
}

// Load reads path and merges it over the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("No config file at %s, using defaults.", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating directories as needed.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

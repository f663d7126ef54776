package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/micro/internal/kernels"
)

// Default values used when a field is left unspecified.
const (
	DefaultArenaSize = 16 * 1024
	DefaultAddr      = ":8080"
	DefaultLogLevel  = "info"
)

// Config holds runtime parameters for the CLI and the HTTP host.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	ModelPath   string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	ArenaSize   int      `json:"arena_size" yaml:"arena_size" toml:"arena_size"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Kernels     []string `json:"kernels" yaml:"kernels" toml:"kernels"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults returns a copy with unspecified fields filled in.
// An empty model path selects the compiled-in reference model.
func (c Config) WithDefaults() Config {
	if c.ArenaSize == 0 {
		c.ArenaSize = DefaultArenaSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if len(c.Kernels) == 0 {
		for _, k := range kernels.AllKinds() {
			c.Kernels = append(c.Kernels, k.String())
		}
	}
	return c
}

// Validate checks field values after defaults are applied.
func (c Config) Validate() error {
	if c.ArenaSize <= 0 {
		return fmt.Errorf("arena_size must be positive, got %d", c.ArenaSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := kernels.ParseKinds(c.Kernels); err != nil {
		return fmt.Errorf("kernels: %w", err)
	}
	return nil
}

// Level returns the parsed log level, or info when it does not parse.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// KernelKinds returns the parsed kernel set.
func (c Config) KernelKinds() ([]kernels.Kind, error) {
	return kernels.ParseKinds(c.Kernels)
}

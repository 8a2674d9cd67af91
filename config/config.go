package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dk0164/TMS-MONITOR/core/metrics"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. TMS_SOURCE__REFRESH_INTERVAL=30s.
const EnvPrefix = "TMS_"

type Config struct {
	Source  SourceConfig   `json:"source"`
	Metrics metrics.Config `json:"metrics"`
	API     APIConfig      `json:"api"`
}

// Load reads the configuration file at path, applies environment overrides
// and defaults, then validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Source.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Source.Validate(); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := cfg.API.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	if err := validateMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return &cfg, nil
}

// Exists reports whether path names a readable file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

func validateMetrics(c metrics.Config) error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: type is required", i)
		}
	}
	return nil
}

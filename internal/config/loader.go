package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigMissing marks an absent configuration file. The CLI maps it to
// exit code 3, outside the OK/WARNING/CRITICAL severity space.
var ErrConfigMissing = errors.New("configuration file does not exist")

// Load reads, parses, defaults, and validates the configuration at path.
//
// A missing file returns ErrConfigMissing (wrapped with the path). Parse and
// validation failures return plain errors; callers let those reach the
// top-level fault barrier.
func Load(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(logger); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

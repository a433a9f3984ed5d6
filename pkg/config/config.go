// Package config loads tool configuration from kpar.toml and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the user config
// directory.
const FileName = "kpar.toml"

// Environment variables honored at load time.
const (
	// EnvIndex holds a comma-separated list of index URLs prepended
	// to the configured ones.
	EnvIndex = "KPAR_INDEX"
	// EnvNoConfig disables reading the config file when set to a
	// non-empty value.
	EnvNoConfig = "KPAR_NO_CONFIG"
)

// DefaultIndexes are used when neither the config file nor KPAR_INDEX
// names any index.
var DefaultIndexes = []string{"https://index.kparproject.org"}

// Config is the decoded tool configuration.
type Config struct {
	// Indexes are package index base URLs, tried in order.
	Indexes []string `toml:"indexes"`
	// Environment is the default environment root used when a
	// command does not name one.
	Environment string `toml:"environment"`
}

// Path returns the location of the config file.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "kpar", FileName), nil
}

// Load reads the config file (unless KPAR_NO_CONFIG is set or the file
// is absent) and applies environment overrides. A missing file is not
// an error; a present but malformed file is.
func Load() (*Config, error) {
	var cfg Config

	if os.Getenv(EnvNoConfig) == "" {
		path, err := Path()
		if err == nil {
			if err := loadFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	if extra := os.Getenv(EnvIndex); extra != "" {
		var prepend []string
		for _, raw := range strings.Split(extra, ",") {
			raw = strings.TrimSpace(raw)
			if raw != "" {
				prepend = append(prepend, raw)
			}
		}
		cfg.Indexes = append(prepend, cfg.Indexes...)
	}

	if len(cfg.Indexes) == 0 {
		cfg.Indexes = append(cfg.Indexes, DefaultIndexes...)
	}
	if cfg.Environment == "" {
		cfg.Environment = ".kpar_env"
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces krep's environment variables, e.g. KREP_DATA_DIR.
const envPrefix = "KREP_"

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Precedence (low -> high):
//  1. defaults (New())
//  2. file: $KREP_CONFIG if set, else $XDG_CONFIG_HOME/krep/config.yaml
//  3. env (prefix KREP_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := configFilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if os.Getenv("KREP_CONFIG") != "" {
			// An explicitly named config file must exist.
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// Map env keys like KREP_DATA_DIR -> data_dir to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// configFilePath resolves the YAML config location. KREP_CONFIG wins; the
// fallback is the XDG config directory.
func configFilePath() string {
	if path := os.Getenv("KREP_CONFIG"); path != "" {
		return path
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "krep", "config.yaml")
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor HAL_CONFIG is given.
const DefaultPath = "hal.yaml"

// Path returns the config path from HAL_CONFIG, falling back to DefaultPath.
func Path() string {
	if p := os.Getenv("HAL_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads a YAML or JSON(C) config file over the defaults and then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	ApplyEnv(&cfg)
	return &cfg, nil
}

// decode picks the format from the file extension.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc", ".hujson":
		std, err := hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := json.Unmarshal(std, cfg); err != nil {
			return fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from HAL_* environment variables.
func ApplyEnv(cfg *Config) {
	if host := os.Getenv("HAL_API_HOST"); host != "" {
		cfg.Backend.Host = host
	}
	if port, ok := envInt("HAL_API_PORT"); ok {
		cfg.Backend.Port = port
	}
	if level := os.Getenv("HAL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if port, ok := envInt("HAL_DASHBOARD_PORT"); ok {
		cfg.Dashboard.Port = port
		cfg.Dashboard.Enabled = true
	}
	if driver := os.Getenv("HAL_PANEL_DRIVER"); driver != "" {
		cfg.Panel.Driver = driver
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

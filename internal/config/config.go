package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that take precedence over pyckles.yaml.
const (
	EnvCacheDir  = "PYCKLES_CACHE_DIR"
	EnvServerURL = "PYCKLES_SERVER_URL"
	EnvIndexFile = "PYCKLES_INDEX_FILE"
	EnvUseCache  = "PYCKLES_USE_CACHE"
)

// DefaultServerURL is the origin the catalogue files are published under.
const DefaultServerURL = "https://scopesim.univie.ac.at/pyckles/"

// Config is the in-memory representation of ~/.pyckles/pyckles.yaml.
type Config struct {
	ServerURL string `yaml:"server_url"`
	CacheDir  string `yaml:"cache_dir"`
	// IndexFile is the listing's name on the server, or an absolute path
	// to a local listing.
	IndexFile   string        `yaml:"index_file,omitempty"`
	ReturnStyle string        `yaml:"return_style,omitempty"`
	UseCache    bool          `yaml:"use_cache"`
	Attempts    int           `yaml:"attempts,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// PycklesDir returns the absolute path to ~/.pyckles/.
func PycklesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".pyckles"), nil
}

// ConfigPath returns the absolute path to ~/.pyckles/pyckles.yaml.
func ConfigPath() (string, error) {
	dir, err := PycklesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pyckles.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the configuration used when no pyckles.yaml exists.
func DefaultConfig() (*Config, error) {
	dir, err := PycklesDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		ServerURL:   DefaultServerURL,
		CacheDir:    filepath.Join(dir, "cache"),
		IndexFile:   "index.dat",
		ReturnStyle: "fits",
		UseCache:    true,
		Attempts:    3,
		Timeout:     time.Minute,
	}, nil
}

// Load reads and parses ~/.pyckles/pyckles.yaml. A missing file yields the
// defaults; fields left empty in the file keep their default values.
func Load() (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	// Expand ~ in CacheDir and IndexFile at load time.
	if cfg.CacheDir, err = ExpandPath(cfg.CacheDir); err != nil {
		return nil, err
	}
	if cfg.IndexFile, err = ExpandPath(cfg.IndexFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads the config file and applies environment overrides (process
// environment first, then ~/.pyckles/.env).
func Resolve() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if v, err := GetConfigValue(EnvCacheDir); err != nil {
		return nil, err
	} else if v != "" {
		if cfg.CacheDir, err = ExpandPath(v); err != nil {
			return nil, err
		}
	}
	if v, err := GetConfigValue(EnvServerURL); err != nil {
		return nil, err
	} else if v != "" {
		cfg.ServerURL = v
	}
	if v, err := GetConfigValue(EnvIndexFile); err != nil {
		return nil, err
	} else if v != "" {
		if cfg.IndexFile, err = ExpandPath(v); err != nil {
			return nil, err
		}
	}
	if v, err := GetConfigValue(EnvUseCache); err != nil {
		return nil, err
	} else if v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s=%q: %w", EnvUseCache, v, err)
		}
		cfg.UseCache = b
	}
	return cfg, nil
}

// Save marshals cfg and writes it to ~/.pyckles/pyckles.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

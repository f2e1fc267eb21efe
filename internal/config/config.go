// Package config loads bbflame settings from a TOML file.
//
// Settings come from three layers, highest first: command-line flags, the
// config file and the built-in defaults. This package covers the last two;
// commands apply flags on top of the loaded [Config].
//
// A complete file:
//
//	cell_width  = 20
//	row_height  = 20
//	scroll_step = 10
//	width       = 80
//	seed        = 42
//	labels      = "~/traces/labels.toml"
//
//	[server]
//	addr        = "127.0.0.1:8080"
//	redis_addr  = "localhost:6379"
//	session_ttl = "30m"
//	metrics     = true
//
//	[cache]
//	dir      = "/var/cache/bbflame"
//	disabled = false
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/session"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

// AppName names the config and cache directories.
const AppName = "bbflame"

// Config holds every file-configurable setting.
type Config struct {
	CellWidth  int    `toml:"cell_width"`
	RowHeight  int    `toml:"row_height"`
	ScrollStep int64  `toml:"scroll_step"`
	Width      int64  `toml:"width"`
	Seed       uint64 `toml:"seed"`
	Labels     string `toml:"labels"`

	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
}

// ServerConfig configures the HTTP viewer.
type ServerConfig struct {
	Addr          string   `toml:"addr"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	SessionTTL    Duration `toml:"session_ttl"`
	Metrics       bool     `toml:"metrics"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// Duration is a time.Duration written as a string such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CellWidth:  viewport.DefaultCell,
		RowHeight:  viewport.DefaultCell,
		ScrollStep: viewport.DefaultStep,
		Width:      80,
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			SessionTTL: Duration{session.DefaultTTL},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/bbflame/config.toml, falling back
// to ~/.config/bbflame/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// Load reads the file at path over the defaults. An empty path reads the
// default location, where a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, errors.New(errors.ErrCodeFileNotFound, "config file %s not found", path)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	if err := cfg.merge(data); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	cfg.Labels = expandHome(cfg.Labels)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	return cfg, cfg.Validate()
}

// Parse decodes data over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.merge(data); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	return cfg, cfg.Validate()
}

func (c *Config) merge(data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate rejects settings no command can work with.
func (c Config) Validate() error {
	switch {
	case c.CellWidth <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "cell_width must be positive, got %d", c.CellWidth)
	case c.RowHeight <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "row_height must be positive, got %d", c.RowHeight)
	case c.ScrollStep <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "scroll_step must be positive, got %d", c.ScrollStep)
	case c.Width < 0:
		return errors.New(errors.ErrCodeInvalidInput, "width must not be negative, got %d", c.Width)
	case c.Server.SessionTTL.Duration <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "server.session_ttl must be positive, got %s", c.Server.SessionTTL)
	}
	return nil
}

// Geometry returns the configured cell size.
func (c Config) Geometry() viewport.Geometry {
	return viewport.Geometry{CellWidth: c.CellWidth, RowHeight: c.RowHeight}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

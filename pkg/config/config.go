// Package config loads ontograph settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/ontograph/config.toml (falling back to
// ~/.config/ontograph/config.toml) unless a path is given explicitly. Values
// in the file override [Default]; environment variables override the file;
// command-line flags override everything and are applied by the CLI.
//
//	[simulation]
//	repulsion = 3000
//	attraction = 0.01
//	damping = 0.8
//	steps = 300
//	min_distance = 1
//
//	[view]
//	width = 1200
//	height = 800
//	device_scale = 1
//	click_slop = 3
//
//	[server]
//	addr = ":8080"
//	frame_rate = 60
//	redis_addr = ""
//	cache_ttl = "24h"
//	session_ttl = "30m"
//
//	[mongo]
//	uri = ""
//	database = "ontograph"
//	collection = "snapshots"
package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/input"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/session"
)

const appName = "ontograph"

// Environment variables read by ApplyEnv.
const (
	EnvAddr      = "ONTOGRAPH_ADDR"
	EnvRedisAddr = "ONTOGRAPH_REDIS_ADDR"
	EnvMongoURI  = "ONTOGRAPH_MONGO_URI"
)

// Config is the complete configuration.
type Config struct {
	Simulation force.Config `toml:"simulation"`
	View       View         `toml:"view"`
	Server     Server       `toml:"server"`
	Mongo      Mongo        `toml:"mongo"`
}

// View configures the drawing surface and pointer handling.
type View struct {
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	DeviceScale float64 `toml:"device_scale"`
	ClickSlop   float64 `toml:"click_slop"`
}

// Server configures the HTTP host.
type Server struct {
	Addr          string        `toml:"addr"`
	FrameRate     int           `toml:"frame_rate"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	CacheTTL      time.Duration `toml:"cache_ttl"`
	SessionTTL    time.Duration `toml:"session_ttl"`
}

// Mongo configures the MongoDB snapshot source. An empty URI disables it.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Simulation: force.DefaultConfig(),
		View: View{
			Width:       1200,
			Height:      800,
			DeviceScale: 1,
			ClickSlop:   input.DefaultClickSlop,
		},
		Server: Server{
			Addr:       ":8080",
			FrameRate:  session.DefaultFrameRate,
			CacheTTL:   24 * time.Hour,
			SessionTTL: 30 * time.Minute,
		},
		Mongo: Mongo{
			Database:   appName,
			Collection: "snapshots",
		},
	}
}

// DefaultPath returns the XDG location of the config file.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config file at path over the defaults and validates the
// result. An empty path means DefaultPath, and a missing default file is
// not an error. Unknown keys are rejected.
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
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
	}
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read %s", path)
	}

	if err := Decode(string(data), &cfg); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "%s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode decodes TOML text into cfg, keeping fields the text does not set.
func Decode(text string, cfg *Config) error {
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return errs.New(errs.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Server.RedisAddr = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Mongo.URI = v
	}
}

// Validate rejects settings the core cannot run with.
func (c Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Damping <= 0 || s.Damping >= 1:
		return errs.New(errs.ErrCodeInvalidConfig, "simulation.damping must be in (0, 1), got %g", s.Damping)
	case s.MaxSteps < 0:
		return errs.New(errs.ErrCodeInvalidConfig, "simulation.steps must not be negative, got %d", s.MaxSteps)
	case s.Repulsion < 0 || s.Attraction < 0:
		return errs.New(errs.ErrCodeInvalidConfig, "simulation constants must not be negative")
	case s.MinDistance < 0:
		return errs.New(errs.ErrCodeInvalidConfig, "simulation.min_distance must not be negative, got %g", s.MinDistance)
	}
	if err := errs.ValidateDimensions(c.View.Width, c.View.Height); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "view")
	}
	if c.View.DeviceScale <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "view.device_scale must be positive, got %g", c.View.DeviceScale)
	}
	if c.View.ClickSlop < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "view.click_slop must not be negative, got %g", c.View.ClickSlop)
	}
	if c.Server.FrameRate <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "server.frame_rate must be positive, got %d", c.Server.FrameRate)
	}
	return nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

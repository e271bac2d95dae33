package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/ontograph/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Simulation.Repulsion != 3000 || cfg.Simulation.Damping != 0.8 || cfg.Simulation.MaxSteps != 300 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.View.Width != 1200 || cfg.View.Height != 800 || cfg.View.ClickSlop != 3 {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.FrameRate != 60 || cfg.Server.CacheTTL != 24*time.Hour {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Mongo.Database != "ontograph" || cfg.Mongo.Collection != "snapshots" {
		t.Errorf("mongo = %+v", cfg.Mongo)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	text := `
[simulation]
damping = 0.5
steps = 120

[view]
width = 640

[server]
addr = "127.0.0.1:9000"
cache_ttl = "2h"

[mongo]
uri = "mongodb://localhost:27017"
`
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Damping != 0.5 || cfg.Simulation.MaxSteps != 120 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.Repulsion != 3000 {
		t.Errorf("unset repulsion = %g, want default 3000", cfg.Simulation.Repulsion)
	}
	if cfg.View.Width != 640 || cfg.View.Height != 800 {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.CacheTTL != 2*time.Hour {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" || cfg.Mongo.Database != "ontograph" {
		t.Errorf("mongo = %+v", cfg.Mongo)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing default file should not fail: %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("explicit missing file: got %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", "[view\nwidth = 1"},
		{"unknown key", "[view]\ncolour = 1"},
		{"damping one", "[simulation]\ndamping = 1.0"},
		{"negative steps", "[simulation]\nsteps = -1"},
		{"zero width", "[view]\nwidth = 0"},
		{"negative slop", "[view]\nclick_slop = -1"},
		{"zero frame rate", "[server]\nframe_rate = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.text), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("got %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "ontograph", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvMongoURI, "mongodb://db")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Server.Addr != ":9999" || cfg.Server.RedisAddr != "localhost:6379" || cfg.Mongo.URI != "mongodb://db" {
		t.Errorf("ApplyEnv: %+v %+v", cfg.Server, cfg.Mongo)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.View.Width = 1024
	cfg.Server.CacheTTL = 90 * time.Minute

	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "[simulation]") {
		t.Errorf("missing [simulation] section:\n%s", buf.String())
	}

	got := Default()
	if err := Decode(buf.String(), &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

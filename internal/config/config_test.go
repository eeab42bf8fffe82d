package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Portal.URL != "https://iporesult.cdsc.com.np/" {
		t.Errorf("unexpected default portal url %q", cfg.Portal.URL)
	}
	if cfg.Check.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Check.MaxAttempts)
	}
	if got := cfg.Check.ExtractTimeout(); got != 15*time.Second {
		t.Errorf("ExtractTimeout = %v, want 15s", got)
	}
	if got := cfg.Check.SubmitTimeout(); got != 20*time.Second {
		t.Errorf("SubmitTimeout = %v, want 20s", got)
	}
	if got := cfg.Check.PaceDelay(); got != 2*time.Second {
		t.Errorf("PaceDelay = %v, want 2s", got)
	}
	if !cfg.Browser.Headless {
		t.Error("browser should default to headless")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("defaults should fail validation: solver enabled without base_url")
	}
	cfg.Solver.BaseURL = "http://localhost:3000"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v after setting solver url", err)
	}
}

func TestAccessorFallbacks(t *testing.T) {
	// Zero and negative stored values fall back to defaults.
	var check CheckConfig
	if check.ExtractTimeout() != 15*time.Second {
		t.Error("zero ExtractTimeoutMs did not fall back")
	}
	check.PaceDelayMs = -1
	if check.PaceDelay() != 2*time.Second {
		t.Error("negative PaceDelayMs did not fall back")
	}

	var browser BrowserConfig
	if browser.GetViewportWidth() != 1280 || browser.GetViewportHeight() != 900 {
		t.Error("zero viewport did not fall back")
	}
	if browser.PollInterval() != 250*time.Millisecond {
		t.Error("zero PollIntervalMs did not fall back")
	}

	var solver SolverConfig
	if solver.Timeout() != 30*time.Second {
		t.Error("zero solver TimeoutMs did not fall back")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Portal.URL = "https://example.test/result"
	cfg.Solver.Enabled = false
	cfg.Check.PaceDelayMs = 5000
	cfg.Logging.Level = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if got.Portal.URL != "https://example.test/result" {
		t.Errorf("portal url = %q", got.Portal.URL)
	}
	if got.Solver.Enabled {
		t.Error("solver.enabled did not round-trip")
	}
	if got.Check.PaceDelay() != 5*time.Second {
		t.Errorf("PaceDelay = %v, want 5s", got.Check.PaceDelay())
	}
	if got.Logging.Level != "debug" {
		t.Errorf("logging level = %q", got.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() on missing file = %v, want defaults", err)
	}
	if cfg.Portal.URL == "" {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("portal: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() on malformed yaml should error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IPOCHECK_PORTAL_URL", "https://override.test/")
	t.Setenv("IPOCHECK_SOLVER_URL", "http://solver.test")
	t.Setenv("IPOCHECK_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Portal.URL != "https://override.test/" {
		t.Errorf("portal url = %q", cfg.Portal.URL)
	}
	if cfg.Solver.BaseURL != "http://solver.test" {
		t.Errorf("solver url = %q", cfg.Solver.BaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) { c.Solver.BaseURL = "http://s" }, false},
		{"missing portal url", func(c *Config) { c.Portal.URL = ""; c.Solver.Enabled = false }, true},
		{"solver enabled without url", func(c *Config) {}, true},
		{"solver disabled without url", func(c *Config) { c.Solver.Enabled = false }, false},
		{"bad log level", func(c *Config) { c.Solver.Enabled = false; c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

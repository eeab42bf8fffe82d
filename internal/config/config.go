// Package config holds all ipocheck configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ipocheck configuration.
type Config struct {
	// Portal settings
	Portal PortalConfig `yaml:"portal"`

	// Captcha recognition service
	Solver SolverConfig `yaml:"solver"`

	// Embedded browser surface
	Browser BrowserConfig `yaml:"browser"`

	// Orchestrator tuning
	Check CheckConfig `yaml:"check"`

	// IPO listing backend
	IPO IPOConfig `yaml:"ipo"`

	// Run history store
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PortalConfig locates the remote allotment-result form.
type PortalConfig struct {
	URL string `yaml:"url"`
}

// SolverConfig configures the remote captcha recognizer.
type SolverConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Timeout returns the recognition call timeout.
func (c SolverConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// BrowserConfig configures the rod-driven rendering surface.
type BrowserConfig struct {
	Bin                 string `yaml:"bin"`
	DebuggerURL         string `yaml:"debugger_url"`
	Headless            bool   `yaml:"headless"`
	ViewportWidth       int    `yaml:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	PollIntervalMs      int    `yaml:"poll_interval_ms"`
}

// GetViewportWidth returns viewport width.
func (c BrowserConfig) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1280
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c BrowserConfig) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 900
	}
	return c.ViewportHeight
}

// NavigationTimeout returns the page navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// PollInterval returns how often the surface drains the page-side message
// queue.
func (c BrowserConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// CheckConfig tunes the orchestrator loop.
type CheckConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	ExtractTimeoutMs int `yaml:"extract_timeout_ms"`
	SubmitTimeoutMs  int `yaml:"submit_timeout_ms"`
	PaceDelayMs      int `yaml:"pace_delay_ms"`
	CompanySettleMs  int `yaml:"company_settle_ms"`
}

// ExtractTimeout returns the CAPTCHA_IMAGE_READY wait bound.
func (c CheckConfig) ExtractTimeout() time.Duration {
	if c.ExtractTimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ExtractTimeoutMs) * time.Millisecond
}

// SubmitTimeout returns the BULK_CHECK_RESULT wait bound.
func (c CheckConfig) SubmitTimeout() time.Duration {
	if c.SubmitTimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.SubmitTimeoutMs) * time.Millisecond
}

// PaceDelay returns the between-target rate-limit sleep.
func (c CheckConfig) PaceDelay() time.Duration {
	if c.PaceDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.PaceDelayMs) * time.Millisecond
}

// CompanySettle returns the fire-and-forget company-selection settle delay.
func (c CheckConfig) CompanySettle() time.Duration {
	if c.CompanySettleMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.CompanySettleMs) * time.Millisecond
}

// IPOConfig configures the IPO listing backend.
type IPOConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Timeout returns the listing call timeout.
func (c IPOConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// HistoryConfig configures the sqlite run-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Portal: PortalConfig{
			URL: "https://iporesult.cdsc.com.np/",
		},
		Solver: SolverConfig{
			Enabled:   true,
			TimeoutMs: 30000,
		},
		Browser: BrowserConfig{
			Headless:            true,
			ViewportWidth:       1280,
			ViewportHeight:      900,
			NavigationTimeoutMs: 30000,
			PollIntervalMs:      250,
		},
		Check: CheckConfig{
			MaxAttempts:      3,
			ExtractTimeoutMs: 15000,
			SubmitTimeoutMs:  20000,
			PaceDelayMs:      2000,
			CompanySettleMs:  2000,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".ipocheck", "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path. A missing file is not an error:
// defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.Portal.URL == "" {
		return fmt.Errorf("portal.url is required")
	}
	if c.Solver.Enabled && c.Solver.BaseURL == "" {
		return fmt.Errorf("solver.base_url is required when solver.enabled is true")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides lets the environment win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("IPOCHECK_PORTAL_URL"); v != "" {
		c.Portal.URL = v
	}
	if v := os.Getenv("IPOCHECK_SOLVER_URL"); v != "" {
		c.Solver.BaseURL = v
	}
	if v := os.Getenv("IPOCHECK_IPO_URL"); v != "" {
		c.IPO.BaseURL = v
	}
	if v := os.Getenv("IPOCHECK_BROWSER_BIN"); v != "" {
		c.Browser.Bin = v
	}
	if v := os.Getenv("IPOCHECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

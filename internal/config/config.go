// Package config loads and validates the watcher configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tablewatch/pkg/booking"
	"github.com/jmylchreest/tablewatch/pkg/scan"
	"github.com/jmylchreest/tablewatch/pkg/slot"
)

// Duration accepts YAML strings like "30m" or "90s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the operator-supplied configuration, read-only per cycle.
type Config struct {
	// URL of the reservation page to watch.
	URL string `yaml:"url" validate:"required,url"`

	// Dates to check, ISO format, scanned in order.
	Dates []string `yaml:"dates" validate:"required,min=1,dive,datetime=2006-01-02"`

	// Window is the acceptable time-of-day range, inclusive both ends.
	Window WindowConfig `yaml:"window"`

	// PartySizes are tried in the listed order; the first size yielding a
	// qualifying slot wins.
	PartySizes []int `yaml:"party_sizes" validate:"required,min=1,dive,gt=0"`

	Contact ContactConfig `yaml:"contact"`

	// Commit enables the irreversible submit click. Default false: the
	// engine verifies submit readiness without booking.
	Commit bool `yaml:"commit"`

	// Interval between scan cycles in watch mode.
	Interval Duration `yaml:"interval"`

	Browser BrowserConfig `yaml:"browser"`
	SMTP    SMTPConfig    `yaml:"smtp"`
}

// WindowConfig is the configured time window in HH:MM.
type WindowConfig struct {
	Start string `yaml:"start" validate:"required,datetime=15:04"`
	End   string `yaml:"end" validate:"required,datetime=15:04"`
}

// ContactConfig holds the details typed into the booking form.
type ContactConfig struct {
	Name  string `yaml:"name" validate:"required"`
	Phone string `yaml:"phone" validate:"required"`
	Email string `yaml:"email" validate:"required,email"`
}

// BrowserConfig tunes the browsing session.
type BrowserConfig struct {
	// Headless runs the browser without a window. Visible mode sometimes
	// survives the site's automation checks better.
	Headless bool `yaml:"headless"`

	// Stealth enables bot-detection evasion scripts.
	Stealth bool `yaml:"stealth"`

	// ScreenshotDir enables step screenshots when non-empty.
	ScreenshotDir string `yaml:"screenshot_dir"`

	// Timeout bounds each element wait.
	Timeout Duration `yaml:"timeout"`
}

// SMTPConfig configures email notifications. Leave Host empty to disable.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"omitempty,gt=0"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" validate:"omitempty,email"`
	To       string `yaml:"to" validate:"omitempty,email"`
}

// Enabled reports whether email notifications are configured.
func (s SMTPConfig) Enabled() bool { return s.Host != "" }

// Defaults applied when the file leaves fields unset.
const (
	DefaultInterval       = Duration(30 * time.Minute)
	DefaultBrowserTimeout = Duration(20 * time.Second)
	DefaultSMTPPort       = 587
)

// FromFile loads, defaults, and validates a YAML config file. SMTP
// credentials may come from TABLEWATCH_SMTP_USERNAME and
// TABLEWATCH_SMTP_PASSWORD instead of the file.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads user-specified config
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse loads a config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.checkWindow(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = DefaultBrowserTimeout
	}
	if c.SMTP.Enabled() && c.SMTP.Port == 0 {
		c.SMTP.Port = DefaultSMTPPort
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TABLEWATCH_SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("TABLEWATCH_SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
}

func (c *Config) checkWindow() error {
	start, ok := slot.ParseClock(c.Window.Start)
	if !ok {
		return fmt.Errorf("invalid config: window start %q", c.Window.Start)
	}
	end, ok := slot.ParseClock(c.Window.End)
	if !ok {
		return fmt.Errorf("invalid config: window end %q", c.Window.End)
	}
	if end < start {
		return fmt.Errorf("invalid config: window end %s before start %s", c.Window.End, c.Window.Start)
	}
	return nil
}

// SlotWindow converts the configured window. Call only after validation.
func (c *Config) SlotWindow() slot.Window {
	start, _ := slot.ParseClock(c.Window.Start)
	end, _ := slot.ParseClock(c.Window.End)
	return slot.Window{Start: start, End: end}
}

// ScanConfig builds the immutable per-cycle configuration.
func (c *Config) ScanConfig() scan.Config {
	return scan.Config{
		URL:        c.URL,
		Dates:      append([]string(nil), c.Dates...),
		Window:     c.SlotWindow(),
		PartySizes: append([]int(nil), c.PartySizes...),
		Contact: booking.Contact{
			Name:  c.Contact.Name,
			Phone: c.Contact.Phone,
			Email: c.Contact.Email,
		},
		Commit: c.Commit,
	}
}

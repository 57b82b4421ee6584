package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
url: https://example.com/reserve
dates:
  - "2025-05-17"
  - "2025-05-18"
window:
  start: "12:00"
  end: "20:00"
party_sizes: [4, 2]
contact:
  name: A Tester
  phone: "5550100"
  email: a@example.com
`

func mustParse(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return cfg
}

// --- Parse Tests ---

func TestParse_Valid(t *testing.T) {
	cfg := mustParse(t, validYAML)

	if cfg.URL != "https://example.com/reserve" {
		t.Errorf("url: got %s", cfg.URL)
	}
	if len(cfg.Dates) != 2 || cfg.Dates[0] != "2025-05-17" {
		t.Errorf("dates: got %v", cfg.Dates)
	}
	if len(cfg.PartySizes) != 2 || cfg.PartySizes[0] != 4 {
		t.Errorf("party_sizes: got %v", cfg.PartySizes)
	}
	if cfg.Commit {
		t.Error("commit must default to false")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg := mustParse(t, validYAML)

	if cfg.Interval != DefaultInterval {
		t.Errorf("interval default: got %v", cfg.Interval)
	}
	if cfg.Browser.Timeout != DefaultBrowserTimeout {
		t.Errorf("browser timeout default: got %v", cfg.Browser.Timeout)
	}
	if cfg.SMTP.Enabled() {
		t.Error("smtp must be disabled without a host")
	}
}

func TestParse_SMTPPortDefault(t *testing.T) {
	yaml := validYAML + `
smtp:
  host: smtp.example.com
  from: watch@example.com
  to: me@example.com
`
	cfg := mustParse(t, yaml)
	if !cfg.SMTP.Enabled() {
		t.Fatal("smtp should be enabled when a host is set")
	}
	if cfg.SMTP.Port != DefaultSMTPPort {
		t.Errorf("smtp port default: got %d", cfg.SMTP.Port)
	}
}

func TestParse_EnvCredentials(t *testing.T) {
	t.Setenv("TABLEWATCH_SMTP_USERNAME", "env-user")
	t.Setenv("TABLEWATCH_SMTP_PASSWORD", "env-pass")

	yaml := validYAML + `
smtp:
  host: smtp.example.com
`
	cfg := mustParse(t, yaml)
	if cfg.SMTP.Username != "env-user" || cfg.SMTP.Password != "env-pass" {
		t.Errorf("env credentials not applied: %q/%q", cfg.SMTP.Username, cfg.SMTP.Password)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing url", strings.Replace(validYAML, "url: https://example.com/reserve", "", 1)},
		{"bad date format", strings.Replace(validYAML, `"2025-05-17"`, `"17/05/2025"`, 1)},
		{"empty dates", strings.Replace(validYAML, "dates:\n  - \"2025-05-17\"\n  - \"2025-05-18\"", "dates: []", 1)},
		{"zero party size", strings.Replace(validYAML, "party_sizes: [4, 2]", "party_sizes: [0]", 1)},
		{"bad window time", strings.Replace(validYAML, `start: "12:00"`, `start: "noonish"`, 1)},
		{"bad email", strings.Replace(validYAML, "email: a@example.com", "email: not-an-email", 1)},
		{"missing contact name", strings.Replace(validYAML, "name: A Tester", "", 1)},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestParse_WindowEndBeforeStart(t *testing.T) {
	yaml := strings.Replace(validYAML, `end: "20:00"`, `end: "11:00"`, 1)
	if _, err := Parse([]byte(yaml)); err == nil {
		t.Fatal("window ending before its start must be rejected")
	}
}

func TestParse_IntervalOverride(t *testing.T) {
	cfg := mustParse(t, validYAML+"\ninterval: 5m\n")
	if cfg.Interval != Duration(5*time.Minute) {
		t.Errorf("interval: got %v", cfg.Interval)
	}
}

// --- Conversion Tests ---

func TestSlotWindow(t *testing.T) {
	w := mustParse(t, validYAML).SlotWindow()
	if w.Start != 12*60 || w.End != 20*60 {
		t.Errorf("window: got %v-%v", w.Start, w.End)
	}
}

func TestScanConfig(t *testing.T) {
	cfg := mustParse(t, validYAML)
	sc := cfg.ScanConfig()

	if sc.URL != cfg.URL {
		t.Errorf("url not carried over")
	}
	if sc.Contact.Email != "a@example.com" {
		t.Errorf("contact not carried over: %+v", sc.Contact)
	}

	// The scan config must be a copy, not a view.
	sc.Dates[0] = "mutated"
	if cfg.Dates[0] == "mutated" {
		t.Error("ScanConfig must copy slice fields")
	}
}

func TestFromFile_Missing(t *testing.T) {
	if _, err := FromFile("/nonexistent/tablewatch.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

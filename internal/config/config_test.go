package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Portal.PhoneNumber = "9999999999"
	cfg.Portal.Password = "secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Browser.ExplicitWait.Duration() != 15*time.Second {
		t.Errorf("Expected explicit wait 15s, got %s", cfg.Browser.ExplicitWait)
	}
	if cfg.Chart.AnalysisDuration.Duration() != 300*time.Second {
		t.Errorf("Expected analysis duration 300s, got %s", cfg.Chart.AnalysisDuration)
	}
	if cfg.Chart.MaxSymbols != 3 {
		t.Errorf("Expected max symbols 3, got %d", cfg.Chart.MaxSymbols)
	}
	if cfg.Chart.Timeframe != "1H" {
		t.Errorf("Expected timeframe 1H, got %s", cfg.Chart.Timeframe)
	}
}

func TestDurationDecode(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"10", 10 * time.Second},
		{"10s", 10 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"250ms", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		var d Duration
		if err := d.Decode(tt.in); err != nil {
			t.Errorf("Decode(%q): unexpected error %v", tt.in, err)
			continue
		}
		if d.Duration() != tt.want {
			t.Errorf("Decode(%q) = %s, want %s", tt.in, d, tt.want)
		}
	}

	var d Duration
	if err := d.Decode("soon"); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holdingscope.yaml")
	yamlData := `
browser:
  name: firefox
  explicit_wait: 20
chart:
  max_symbols: 5
  analysis_duration: 2s
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	chdir(t, dir)
	t.Setenv("KOTAK_PHONE_NUMBER", "9876543210")
	t.Setenv("KOTAK_PASSWORD", "pw")
	t.Setenv("MAX_SYMBOLS", "2")
	t.Setenv("IMPLICIT_WAIT", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Browser.Name != "firefox" {
		t.Errorf("Expected browser from file, got %s", cfg.Browser.Name)
	}
	if cfg.Browser.ExplicitWait.Duration() != 20*time.Second {
		t.Errorf("Expected explicit wait 20s from file, got %s", cfg.Browser.ExplicitWait)
	}
	if cfg.Chart.AnalysisDuration.Duration() != 2*time.Second {
		t.Errorf("Expected analysis duration 2s, got %s", cfg.Chart.AnalysisDuration)
	}
	if cfg.Chart.MaxSymbols != 2 {
		t.Errorf("Expected env to override max symbols, got %d", cfg.Chart.MaxSymbols)
	}
	if cfg.Browser.ImplicitWait.Duration() != 3*time.Second {
		t.Errorf("Expected implicit wait 3s from env, got %s", cfg.Browser.ImplicitWait)
	}
	if cfg.Portal.PhoneNumber != "9876543210" {
		t.Errorf("Expected phone from env, got %q", cfg.Portal.PhoneNumber)
	}
	if cfg.Portal.LoginURL == "" {
		t.Error("Expected default login URL to survive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Missing config file should not be an error: %v", err)
	}
	if cfg.Chart.Timeframe != "1H" {
		t.Errorf("Expected defaults, got timeframe %s", cfg.Chart.Timeframe)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"missing credentials": func(c *Config) { c.Portal.Password = "" },
		"unknown browser":     func(c *Config) { c.Browser.Name = "netscape" },
		"zero explicit wait":  func(c *Config) { c.Browser.ExplicitWait = 0 },
		"backoff below one":   func(c *Config) { c.Browser.PollBackoff = 0.5 },
		"no symbols":          func(c *Config) { c.Chart.MaxSymbols = 0 },
		"bad log level":       func(c *Config) { c.Log.Level = "LOUD" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores it when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}

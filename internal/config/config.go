package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"holdingscope/internal/browser"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "holdingscope.yaml"

// Config represents the application configuration
type Config struct {
	Portal   PortalConfig   `yaml:"portal"`
	Browser  BrowserConfig  `yaml:"browser"`
	Chart    ChartConfig    `yaml:"chart"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// PortalConfig holds the brokerage portal credentials and pages
type PortalConfig struct {
	PhoneNumber     string `yaml:"phone_number" envconfig:"KOTAK_PHONE_NUMBER"`
	Password        string `yaml:"password" envconfig:"KOTAK_PASSWORD"`
	LoginURL        string `yaml:"login_url" envconfig:"KOTAK_LOGIN_URL"`
	PortfolioURL    string `yaml:"portfolio_url" envconfig:"KOTAK_PORTFOLIO_URL"`
	SessionTokenKey string `yaml:"session_token_key" envconfig:"SESSION_TOKEN_KEY"` // localStorage key, empty disables
}

// BrowserConfig holds browser selection and wait settings
type BrowserConfig struct {
	Name             string   `yaml:"name" envconfig:"BROWSER"` // chrome, firefox or safari
	Headless         bool     `yaml:"headless" envconfig:"HEADLESS"`
	Path             string   `yaml:"path" envconfig:"BROWSER_PATH"`
	ImplicitWait     Duration `yaml:"implicit_wait" envconfig:"IMPLICIT_WAIT"`
	ExplicitWait     Duration `yaml:"explicit_wait" envconfig:"EXPLICIT_WAIT"`
	PollInterval     Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	PollMaxInterval  Duration `yaml:"poll_max_interval" envconfig:"POLL_MAX_INTERVAL"`
	PollBackoff      float64  `yaml:"poll_backoff" envconfig:"POLL_BACKOFF"`
	ActionsPerMinute int      `yaml:"actions_per_minute" envconfig:"ACTIONS_PER_MINUTE"` // 0 disables pacing
}

// ChartConfig holds chart analysis settings
type ChartConfig struct {
	Timeframe            string   `yaml:"timeframe" envconfig:"TIMEFRAME"`
	AnalysisDuration     Duration `yaml:"analysis_duration" envconfig:"CHART_ANALYSIS_DURATION"`
	PriceChangeThreshold float64  `yaml:"price_change_threshold" envconfig:"PRICE_CHANGE_THRESHOLD"` // percent
	VolumeThreshold      int64    `yaml:"volume_threshold" envconfig:"VOLUME_THRESHOLD"`
	MaxSymbols           int      `yaml:"max_symbols" envconfig:"MAX_SYMBOLS"` // used when no symbols are given
}

// OutputConfig holds where reports and screenshots go
type OutputConfig struct {
	Dir string `yaml:"dir" envconfig:"OUTPUT_DIR"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	File       string `yaml:"file" envconfig:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
}

// TelegramConfig enables the run summary message when both fields are set
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID"`
}

// Enabled reports whether a summary should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ScheduleConfig holds the cron spec for the schedule command
type ScheduleConfig struct {
	Cron            string `yaml:"cron" envconfig:"SCHEDULE_CRON"` // seconds field first
	MarketHoursOnly bool   `yaml:"market_hours_only" envconfig:"SCHEDULE_MARKET_HOURS_ONLY"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			LoginURL:     "https://ntrade.kotaksecurities.com/Login",
			PortfolioURL: "https://ntrade.kotaksecurities.com/dashboard/holdings",
		},
		Browser: BrowserConfig{
			Name:             "chrome",
			Headless:         false,
			ImplicitWait:     Seconds(10),
			ExplicitWait:     Seconds(15),
			PollInterval:     Millis(100),
			PollMaxInterval:  Seconds(1),
			PollBackoff:      1.5,
			ActionsPerMinute: 60,
		},
		Chart: ChartConfig{
			Timeframe:            "1H",
			AnalysisDuration:     Seconds(300),
			PriceChangeThreshold: 0.5,
			VolumeThreshold:      1000000,
			MaxSymbols:           3,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level:      "INFO",
			File:       "kotak_analyzer.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Schedule: ScheduleConfig{
			Cron:            "0 30 9 * * 1-5",
			MarketHoursOnly: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an optional
// .env file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return cfg, nil
}

// Path returns the config file path from CONFIG_PATH, or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Portal.PhoneNumber == "" || c.Portal.Password == "" {
		return fmt.Errorf("KOTAK_PHONE_NUMBER and KOTAK_PASSWORD are required")
	}
	if c.Portal.LoginURL == "" || c.Portal.PortfolioURL == "" {
		return fmt.Errorf("login and portfolio URLs are required")
	}
	if _, err := browser.ParseFamily(c.Browser.Name); err != nil {
		return err
	}
	if c.Browser.ImplicitWait.Duration() <= 0 || c.Browser.ExplicitWait.Duration() <= 0 {
		return fmt.Errorf("implicit and explicit waits must be positive")
	}
	if c.Browser.PollInterval.Duration() <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.Browser.PollBackoff < 1 {
		return fmt.Errorf("poll_backoff must be at least 1, got %.2f", c.Browser.PollBackoff)
	}
	if c.Browser.ActionsPerMinute < 0 {
		return fmt.Errorf("actions_per_minute must not be negative")
	}
	if c.Chart.AnalysisDuration.Duration() < 0 {
		return fmt.Errorf("chart analysis duration must not be negative")
	}
	if c.Chart.MaxSymbols < 1 {
		return fmt.Errorf("max_symbols must be at least 1")
	}
	if strings.TrimSpace(c.Chart.Timeframe) == "" {
		return fmt.Errorf("timeframe is required")
	}
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Sheets   SheetsConfig
	Counting CountingConfig
	Report   ReportConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// CountingConfig holds options for the counting workflow.
type CountingConfig struct {
	DefaultDevice string
	CacheTTL      time.Duration
}

// ReportConfig holds progress report scheduler settings. An empty WebhookURL
// disables scheduled reports.
type ReportConfig struct {
	WebhookURL   string
	CronSchedule string
	Devices      []string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cacheTTL, err := time.ParseDuration(getenvWithDefault("READ_CACHE_TTL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid READ_CACHE_TTL: %w", err)
	}

	defaultDevice := getenvWithDefault("DEFAULT_DEVICE", "21")

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
		},
		Counting: CountingConfig{
			DefaultDevice: defaultDevice,
			CacheTTL:      cacheTTL,
		},
		Report: ReportConfig{
			WebhookURL:   os.Getenv("REPORT_WEBHOOK_URL"),
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Devices:      splitList(getenvWithDefault("REPORT_DEVICES", defaultDevice)),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Taipei"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Log.Level == "" {
		return errors.New("LOG_LEVEL must be provided")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEETS_SPREADSHEET_ID must be provided")
	}

	if c.Counting.DefaultDevice == "" {
		return errors.New("DEFAULT_DEVICE must be provided")
	}

	if c.Counting.CacheTTL <= 0 {
		return errors.New("READ_CACHE_TTL must be a positive duration")
	}

	if c.Report.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Report.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

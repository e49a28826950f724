package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"calendar-service/internal/email"
)

type Config struct {
	// Secret key for signing tokens. Must be set in production.
	Secret string `mapstructure:"secret"`

	// TTL for RSVP capability tokens in hours. RSVP links are emailed, so they
	// live much longer than a session token.
	RSVPTokenTTL uint `mapstructure:"rsvp_token_ttl"`

	// TTL for bearer auth tokens in hours.
	AuthTokenTTL uint `mapstructure:"auth_token_ttl"`

	LogLevel string `mapstructure:"log_level"`

	// Base URL for the application. May be relative, e.g. /calendar/, or
	// absolute, e.g. https://example.com/calendar/
	BaseURL string `mapstructure:"base_url"`

	// Listen address for the HTTP server, e.g. ":8080"
	Listen string `mapstructure:"listen"`

	// Default name for auto-provisioned calendars.
	DefaultCalendarName string `mapstructure:"default_calendar_name"`

	// Hard cap on occurrences expanded per series in a single query.
	MaxOccurrencesPerSeries int `mapstructure:"max_occurrences_per_series"`

	// Requests per minute allowed per client IP on the public RSVP endpoint.
	RSVPRateLimit int `mapstructure:"rsvp_rate_limit"`

	Storage Storage `mapstructure:"storage"`

	// Invitation email configuration
	Email email.SMTPConfig `mapstructure:"email"`
}

var Cfg *Config

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from config files and environment variables
// and returns a Config struct.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvPrefix("")

	if len(configFile) > 0 {
		for _, path := range configFile {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	// Load configuration from environment variables
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	// Convert relative sqlite path to instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	if cfg.MaxOccurrencesPerSeries <= 0 {
		slog.Warn("MAX_OCCURRENCES_PER_SERIES must be positive, using default", "actual", cfg.MaxOccurrencesPerSeries)
		cfg.MaxOccurrencesPerSeries = defaults["max_occurrences_per_series"].(int)
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("SECRET configuration variable is required in production")
		} else {
			slog.Warn("Secret is not set. Do not use in production.")
		}
	}

	return &cfg, nil
}

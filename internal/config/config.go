// Package config loads runtime settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// DatabaseURL selects the Postgres store; empty means in-memory.
	DatabaseURL string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	// Location is the reporting timezone loaded from ReportTimezone.
	ReportTimezone string
	Location       *time.Location

	DevSeed        bool
	MigrateOnStart bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	ShutdownTimeout time.Duration
}

// Keys double as environment variable names.
const (
	KeyDatabaseURL     = "DATABASE_URL"
	KeyHTTPAddr        = "HTTP_ADDR"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyReportTimezone  = "REPORT_TIMEZONE"
	KeyDevSeed         = "DEV_SEED"
	KeyMigrateOnStart  = "MIGRATE_ON_START"
	KeyJWTSecret       = "JWT_HS256_SECRET"
	KeyJWTIssuer       = "JWT_ISSUER"
	KeyJWTAudience     = "JWT_AUDIENCE"
	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Load reads the configuration from v, which is expected to have any config
// file already read. Environment variables take precedence over file values.
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyReportTimezone, "UTC")
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:     strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		HTTPAddr:        strings.TrimSpace(v.GetString(KeyHTTPAddr)),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		ReportTimezone:  strings.TrimSpace(v.GetString(KeyReportTimezone)),
		DevSeed:         flag(v.GetString(KeyDevSeed)),
		MigrateOnStart:  flag(v.GetString(KeyMigrateOnStart)),
		JWTSecret:       strings.TrimSpace(v.GetString(KeyJWTSecret)),
		JWTIssuer:       strings.TrimSpace(v.GetString(KeyJWTIssuer)),
		JWTAudience:     strings.TrimSpace(v.GetString(KeyJWTAudience)),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and resolves the reporting timezone.
func (c *Config) Validate() error {
	var problems []error
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Errorf("invalid %s %q: must be debug, info, warn or error", KeyLogLevel, c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		problems = append(problems, fmt.Errorf("invalid %s %q: must be json or text", KeyLogFormat, c.LogFormat))
	}
	if c.HTTPAddr == "" {
		problems = append(problems, fmt.Errorf("%s cannot be empty", KeyHTTPAddr))
	}
	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Errorf("%s must be positive", KeyShutdownTimeout))
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		problems = append(problems, fmt.Errorf("invalid %s %q: %w", KeyReportTimezone, c.ReportTimezone, err))
	}
	c.Location = loc
	if (c.JWTIssuer != "" || c.JWTAudience != "") && c.JWTSecret == "" {
		problems = append(problems, fmt.Errorf("%s and %s require %s", KeyJWTIssuer, KeyJWTAudience, KeyJWTSecret))
	}
	if c.MigrateOnStart && c.DatabaseURL == "" {
		problems = append(problems, fmt.Errorf("%s requires %s", KeyMigrateOnStart, KeyDatabaseURL))
	}
	return errors.Join(problems...)
}

// flag accepts the usual truthy spellings (1, true, yes, on).
func flag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (Discord, FFLogs), use Validate.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Discord
	DiscordToken string

	// FFLogs API
	FFLogsClientID     string
	FFLogsClientSecret string
	FFLogsAPIURL       string
	FFLogsTokenURL     string

	// Tracking
	RefreshInterval   time.Duration // period between report refresh ticks
	ReportTTL         time.Duration // how long we wait for a change before dropping a tracked report
	StaleThreshold    time.Duration // how old a report can be and still get auto refresh
	MaxTrackedOrigins int           // how many servers can have a live report at once
	MaxEncounters     int           // encounters kept per report

	// Cooldown
	CallCooldown          time.Duration // minimum spacing between calls from one server
	CallAlertThreshold    int           // per-window call cap per server
	CooldownResetInterval time.Duration // shared reset clock for the cooldown table

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail on
// missing credentials; use Validate() before connecting.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")

	cfg.FFLogsClientID = os.Getenv("FFLOGS_CLIENT_ID")
	cfg.FFLogsClientSecret = os.Getenv("FFLOGS_CLIENT_SECRET")
	cfg.FFLogsAPIURL = os.Getenv("FFLOGS_API_URL")
	cfg.FFLogsTokenURL = os.Getenv("FFLOGS_TOKEN_URL")

	var err error
	if cfg.RefreshInterval, err = envDuration("REPORT_REFRESH_INTERVAL", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReportTTL, err = envDuration("REPORT_TTL", 20*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StaleThreshold, err = envDuration("STALE_REPORT_THRESHOLD", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CallCooldown, err = envDuration("CALL_COOLDOWN", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CooldownResetInterval, err = envDuration("COOLDOWN_RESET_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxTrackedOrigins, err = envInt("MAX_TRACKED_ORIGINS", 20); err != nil {
		return nil, err
	}
	if cfg.CallAlertThreshold, err = envInt("CALL_ALERT_THRESHOLD", 30); err != nil {
		return nil, err
	}
	if cfg.MaxEncounters, err = envInt("MAX_ENCOUNTERS", 3); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks the credentials required to actually run the bot.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("missing env: DISCORD_TOKEN required")
	}
	if c.FFLogsClientID == "" || c.FFLogsClientSecret == "" {
		return fmt.Errorf("missing env: FFLOGS_CLIENT_ID and FFLOGS_CLIENT_SECRET required")
	}
	return nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s (duration): %q", key, v)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s (positive int): %q", key, v)
	}
	return n, nil
}

// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the bot core reads at startup.
type Config struct {
	// Environment is "development", "staging" or "production".
	Environment string
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string

	// AdminToken authenticates the admin API. Required outside development.
	AdminToken string

	// CheckInterval paces the pet check cycle; DrainInterval paces the
	// announcement drain cycle. StartupDelay holds both workers back once
	// at boot so migrations and seeds finish first.
	CheckInterval time.Duration
	DrainInterval time.Duration
	StartupDelay  time.Duration

	// Broadcast window: announcements are only emitted between StartHour
	// (inclusive) and EndHour (exclusive) in Timezone.
	BroadcastStartHour int
	BroadcastEndHour   int
	BroadcastTimezone  string

	// LaneSpacing is the minimum gap between two emissions on the same
	// announcement lane. MaxDrainAttempts bounds how many stale items a
	// single lane may consume per drain cycle.
	LaneSpacing      time.Duration
	MaxDrainAttempts int

	// RosterCapacity caps active claims per user per league.
	RosterCapacity int

	// FreshnessWindow is how long after arrival a pet still qualifies for
	// a "new pet" announcement at drain time.
	FreshnessWindow time.Duration

	// PhotoSentinelURL is the shelter feed's placeholder image; a pet whose
	// photo equals it counts as having no photo.
	PhotoSentinelURL string

	// AdoptionChannelID and AdoptionWebhookURL define the single global
	// lane for adoption announcements.
	AdoptionChannelID  string
	AdoptionWebhookURL string

	// SeedDefaults creates the default league and breed values on boot.
	SeedDefaults bool

	Tracing TracingConfig
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// Defaults returns the configuration used when no environment is set.
func Defaults() Config {
	return Config{
		Environment:        "development",
		HTTPAddr:           ":8090",
		LogLevel:           "info",
		CheckInterval:      10 * time.Minute,
		DrainInterval:      time.Minute,
		StartupDelay:       15 * time.Second,
		BroadcastStartHour: 9,
		BroadcastEndHour:   21,
		BroadcastTimezone:  "America/New_York",
		LaneSpacing:        30 * time.Minute,
		MaxDrainAttempts:   5,
		RosterCapacity:     3,
		FreshnessWindow:    72 * time.Hour,
		PhotoSentinelURL:   "https://shelter.example.org/images/no_photo.png",
		AdoptionChannelID:  "adoptions",
		SeedDefaults:       true,
		Tracing: TracingConfig{
			ExporterProtocol: "grpc",
			SamplingRatio:    1.0,
		},
	}
}

// Load reads configuration from FANTASYPET_* environment variables,
// falling back to Defaults. DATABASE_URL is honored when the prefixed
// variable is absent.
func Load() (Config, error) {
	cfg := Defaults()

	cfg.Environment = envString("FANTASYPET_ENV", cfg.Environment)
	cfg.HTTPAddr = envString("FANTASYPET_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = envString("FANTASYPET_LOG_LEVEL", cfg.LogLevel)
	cfg.AdminToken = envString("FANTASYPET_ADMIN_TOKEN", cfg.AdminToken)

	cfg.DatabaseURL = envString("FANTASYPET_DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = envString("DATABASE_URL", "")
	}

	var err error
	if cfg.CheckInterval, err = envDuration("FANTASYPET_CHECK_INTERVAL", cfg.CheckInterval); err != nil {
		return cfg, err
	}
	if cfg.DrainInterval, err = envDuration("FANTASYPET_DRAIN_INTERVAL", cfg.DrainInterval); err != nil {
		return cfg, err
	}
	if cfg.StartupDelay, err = envDuration("FANTASYPET_STARTUP_DELAY", cfg.StartupDelay); err != nil {
		return cfg, err
	}
	if cfg.LaneSpacing, err = envDuration("FANTASYPET_LANE_SPACING", cfg.LaneSpacing); err != nil {
		return cfg, err
	}
	if cfg.FreshnessWindow, err = envDuration("FANTASYPET_FRESHNESS_WINDOW", cfg.FreshnessWindow); err != nil {
		return cfg, err
	}
	if cfg.BroadcastStartHour, err = envInt("FANTASYPET_BROADCAST_START_HOUR", cfg.BroadcastStartHour); err != nil {
		return cfg, err
	}
	if cfg.BroadcastEndHour, err = envInt("FANTASYPET_BROADCAST_END_HOUR", cfg.BroadcastEndHour); err != nil {
		return cfg, err
	}
	if cfg.MaxDrainAttempts, err = envInt("FANTASYPET_MAX_DRAIN_ATTEMPTS", cfg.MaxDrainAttempts); err != nil {
		return cfg, err
	}
	if cfg.RosterCapacity, err = envInt("FANTASYPET_ROSTER_CAPACITY", cfg.RosterCapacity); err != nil {
		return cfg, err
	}
	cfg.BroadcastTimezone = envString("FANTASYPET_BROADCAST_TZ", cfg.BroadcastTimezone)
	cfg.PhotoSentinelURL = envString("FANTASYPET_PHOTO_SENTINEL", cfg.PhotoSentinelURL)
	cfg.AdoptionChannelID = envString("FANTASYPET_ADOPTION_CHANNEL", cfg.AdoptionChannelID)
	cfg.AdoptionWebhookURL = envString("FANTASYPET_ADOPTION_WEBHOOK", cfg.AdoptionWebhookURL)
	if cfg.SeedDefaults, err = envBool("FANTASYPET_SEED_DEFAULTS", cfg.SeedDefaults); err != nil {
		return cfg, err
	}

	if cfg.Tracing.Enabled, err = envBool("FANTASYPET_TRACING_ENABLED", cfg.Tracing.Enabled); err != nil {
		return cfg, err
	}
	cfg.Tracing.ExporterEndpoint = envString("FANTASYPET_TRACING_ENDPOINT", cfg.Tracing.ExporterEndpoint)
	cfg.Tracing.ExporterProtocol = envString("FANTASYPET_TRACING_PROTOCOL", cfg.Tracing.ExporterProtocol)

	return cfg, cfg.Validate()
}

// Validate rejects configurations the process cannot safely start with.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: FANTASYPET_DATABASE_URL or DATABASE_URL is required")
	}
	if c.CheckInterval <= 0 || c.DrainInterval <= 0 {
		return fmt.Errorf("config: check and drain intervals must be positive")
	}
	if c.BroadcastStartHour < 0 || c.BroadcastStartHour > 23 ||
		c.BroadcastEndHour < 0 || c.BroadcastEndHour > 24 {
		return fmt.Errorf("config: broadcast hours out of range")
	}
	if _, err := time.LoadLocation(c.BroadcastTimezone); err != nil {
		return fmt.Errorf("config: invalid broadcast timezone %q: %w", c.BroadcastTimezone, err)
	}
	if c.RosterCapacity <= 0 {
		return fmt.Errorf("config: roster capacity must be positive")
	}
	if c.MaxDrainAttempts <= 0 {
		return fmt.Errorf("config: max drain attempts must be positive")
	}
	if c.IsProduction() && strings.TrimSpace(c.AdminToken) == "" {
		return fmt.Errorf("config: FANTASYPET_ADMIN_TOKEN is required in production")
	}
	return nil
}

// IsProduction reports whether the bot runs with production safeguards.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// BroadcastLocation resolves the configured timezone. Validate has already
// checked it, so failures fall back to UTC.
func (c Config) BroadcastLocation() *time.Location {
	loc, err := time.LoadLocation(c.BroadcastTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func envBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

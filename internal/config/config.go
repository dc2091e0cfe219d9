package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server   ServerConfig   `toml:"server"`   // HTTP server settings
	Feed     FeedConfig     `toml:"feed"`     // Position snapshot source settings
	Tracker  TrackerConfig  `toml:"tracker"`  // Takeoff detection settings
	Airports AirportsConfig `toml:"airports"` // Airport reference data settings
	Storage  StorageConfig  `toml:"storage"`  // Data persistence settings
	Notifier NotifierConfig `toml:"notifier"` // Status posting settings
	Composer ComposerConfig `toml:"composer"` // Optional LLM message composition settings
	Logging  LoggingConfig  `toml:"logging"`  // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the API server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// FeedConfig contains position snapshot source configuration
type FeedConfig struct {
	// OpenSky REST API settings. The API requires OAuth2 client credentials
	// stored in a JSON file (path configured here); without credentials the
	// client falls back to anonymous access with its much lower rate limits.
	BaseURL         string `toml:"base_url"`         // OpenSky API base URL (default: https://opensky-network.org/api)
	CredentialsPath string `toml:"credentials_path"` // Path to OpenSky credentials JSON (e.g., "opensky/credentials.json")
	FleetPath       string `toml:"fleet_path"`       // Path to the tracked fleet CSV (must contain an icao24 column)
	TimeoutSecs     int    `toml:"timeout_seconds"`  // HTTP timeout for snapshot fetches (in seconds)
}

// TrackerConfig contains takeoff detection and scheduling configuration
type TrackerConfig struct {
	PollIntervalSecs   int     `toml:"poll_interval_seconds"`   // How often to fetch a new snapshot batch (in seconds, default: 300)
	StaleThresholdSecs int     `toml:"stale_threshold_seconds"` // Snapshots older than this are skipped (in seconds, default: 600)
	CruiseSpeedKmh     float64 `toml:"cruise_speed_kmh"`        // Assumed cruise speed for arrival estimates (default: 800)
	AircraftType       string  `toml:"aircraft_type"`           // Human-readable fleet description used in notifications (e.g., "Boeing 747")
}

// AirportsConfig contains airport reference data configuration
type AirportsConfig struct {
	DBPath string `toml:"db_path"` // Path to the airport database JSON file (code -> airport details)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // Storage backend type (currently only "sqlite" is supported)
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// NotifierConfig contains status posting configuration
type NotifierConfig struct {
	Enabled          bool   `toml:"enabled"`               // Enable posting takeoff notifications
	PostURL          string `toml:"post_url"`              // Status posting endpoint URL
	BearerToken      string `toml:"bearer_token"`          // Bearer token for the posting endpoint
	TimeoutSecs      int    `toml:"timeout_seconds"`       // HTTP timeout for status posts (in seconds)
	MaxRetries       int    `toml:"max_retries"`           // Retry attempts after a rate-limited delivery (default: 3)
	RetryBackoffSecs int    `toml:"retry_backoff_seconds"` // Fixed backoff between retries (in seconds, default: 60)
}

// ComposerConfig contains optional LLM message composition settings
type ComposerConfig struct {
	Enabled bool   `toml:"enabled"` // Enable LLM rewriting of notification drafts
	APIKey  string `toml:"api_key"` // Gemini API key
	Model   string `toml:"model"`   // Gemini model name (e.g., "gemini-2.0-flash")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults for
// unset optional fields.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}

	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://opensky-network.org/api"
	}
	if c.Feed.FleetPath == "" {
		return fmt.Errorf("feed fleet_path is required")
	}
	if c.Feed.TimeoutSecs <= 0 {
		c.Feed.TimeoutSecs = 30
	}

	if c.Tracker.PollIntervalSecs <= 0 {
		c.Tracker.PollIntervalSecs = 300
	}
	if c.Tracker.StaleThresholdSecs <= 0 {
		c.Tracker.StaleThresholdSecs = 600
	}
	if c.Tracker.CruiseSpeedKmh <= 0 {
		c.Tracker.CruiseSpeedKmh = 800
	}
	if c.Tracker.AircraftType == "" {
		c.Tracker.AircraftType = "Boeing 747"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "flights.db"
	}

	if c.Notifier.Enabled {
		if c.Notifier.PostURL == "" {
			return fmt.Errorf("notifier post_url is required when the notifier is enabled")
		}
		if c.Notifier.BearerToken == "" {
			return fmt.Errorf("notifier bearer_token is required when the notifier is enabled")
		}
	}
	if c.Notifier.TimeoutSecs <= 0 {
		c.Notifier.TimeoutSecs = 15
	}
	if c.Notifier.MaxRetries <= 0 {
		c.Notifier.MaxRetries = 3
	}
	if c.Notifier.RetryBackoffSecs <= 0 {
		c.Notifier.RetryBackoffSecs = 60
	}

	if c.Composer.Enabled {
		if c.Composer.APIKey == "" {
			return fmt.Errorf("composer api_key is required when the composer is enabled")
		}
		if c.Composer.Model == "" {
			c.Composer.Model = "gemini-2.0-flash"
		}
	}

	switch c.Logging.Level {
	case "":
		c.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "":
		c.Logging.Format = "console"
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// PollInterval returns the polling interval as a duration.
func (c *TrackerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// StaleThreshold returns the staleness cutoff as a duration.
func (c *TrackerConfig) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdSecs) * time.Second
}

// Timeout returns the feed HTTP timeout as a duration.
func (c *FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the notifier HTTP timeout as a duration.
func (c *NotifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryBackoff returns the notifier retry backoff as a duration.
func (c *NotifierConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSecs) * time.Second
}

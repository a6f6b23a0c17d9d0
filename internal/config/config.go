// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the journal database and session cache (always absolute)
	Port          int
	LogLevel      string
	DevMode       bool
	ImportFilter  string // Default import filter: all, options, stocks
	RollingWindow int    // Window size for the rolling win-rate report

	Context   ContextAPIConfig
	Analytics AnalyticsConfig
}

// ContextAPIConfig holds settings for the external market-context API.
// Credentials are optional; context analysis is disabled without them.
type ContextAPIConfig struct {
	BaseURL  string
	Username string
	Password string
}

// AnalyticsConfig holds the report thresholds, overridable via
// environment variables.
type AnalyticsConfig struct {
	TiltOpenHour     int     // Open hour (UTC) at or past which a trade counts as "late"
	TiltSizeMultiple float64 // Position size above this multiple of the mean counts as "oversized"
	ClusterGapMs     int64   // Gap between consecutive opens that splits a frequency cluster
	ClusterMinTrades int     // Minimum trades for a cluster to be reported
	DurationBandsMax []float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADESCOPE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("TRADESCOPE_PORT", 8010),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ImportFilter:  getEnv("IMPORT_FILTER", "all"),
		RollingWindow: getEnvAsInt("ROLLING_WINDOW", 50),
		Context: ContextAPIConfig{
			BaseURL:  getEnv("CONTEXT_API_URL", ""),
			Username: getEnv("CONTEXT_API_USERNAME", ""),
			Password: getEnv("CONTEXT_API_PASSWORD", ""),
		},
		Analytics: AnalyticsConfig{
			TiltOpenHour:     getEnvAsInt("TILT_OPEN_HOUR", 15),
			TiltSizeMultiple: getEnvAsFloat("TILT_SIZE_MULTIPLE", 2.0),
			ClusterGapMs:     int64(getEnvAsInt("CLUSTER_GAP_MS", 3600000)),
			ClusterMinTrades: getEnvAsInt("CLUSTER_MIN_TRADES", 3),
			// Upper bounds (inclusive) of the holding-day bands; the last band is open-ended
			DurationBandsMax: []float64{0, 3, 10, 30},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.ImportFilter {
	case "all", "options", "stocks":
	default:
		return fmt.Errorf("invalid IMPORT_FILTER %q (must be all, options or stocks)", c.ImportFilter)
	}

	if c.RollingWindow < 2 {
		return fmt.Errorf("ROLLING_WINDOW must be at least 2, got %d", c.RollingWindow)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Extraction ExtractionConfig
	Matching   MatchingConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	UploadDir      string   `mapstructure:"upload_dir"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ExtractionConfig holds invoice extraction service configuration
type ExtractionConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
}

// MatchingConfig holds the matching pipeline configuration
type MatchingConfig struct {
	DefaultRadiusKm   float64 `mapstructure:"default_radius_km"`
	MinSavingsPercent float64 `mapstructure:"min_savings_percent"`
	MaxCandidates     int     `mapstructure:"max_candidates"`
	MaxAlternatives   int     `mapstructure:"max_alternatives"`
	ItemConcurrency   int     `mapstructure:"item_concurrency"`
	PropagateFailures bool    `mapstructure:"propagate_failures"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.upload_dir", "uploads")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pricelens")
	v.SetDefault("database.name", "pricelens")
	v.SetDefault("database.ssl_mode", "disable")

	// Extraction service defaults
	v.SetDefault("extraction.base_url", "http://localhost:8000")
	v.SetDefault("extraction.timeout", "30s")
	v.SetDefault("extraction.requests_per_min", 60)

	// Matching defaults
	v.SetDefault("matching.default_radius_km", 10.0)
	v.SetDefault("matching.min_savings_percent", 5.0)
	v.SetDefault("matching.max_candidates", 20)
	v.SetDefault("matching.max_alternatives", 50)
	v.SetDefault("matching.item_concurrency", 1)
	v.SetDefault("matching.propagate_failures", false)

	// Log defaults
	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Extraction.BaseURL == "" {
		return fmt.Errorf("extraction service base URL is required (set PRICELENS_EXTRACTION_BASE_URL)")
	}

	if config.Matching.DefaultRadiusKm <= 0 {
		return fmt.Errorf("default radius must be positive, got: %v", config.Matching.DefaultRadiusKm)
	}

	if config.Matching.MinSavingsPercent < 0 {
		return fmt.Errorf("minimum savings percent must not be negative, got: %v", config.Matching.MinSavingsPercent)
	}

	if config.Matching.ItemConcurrency < 1 {
		return fmt.Errorf("item concurrency must be at least 1, got: %d", config.Matching.ItemConcurrency)
	}

	return nil
}

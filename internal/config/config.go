package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Dispatch  DispatchConfig
	WebSocket WebSocketConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	MinIdleConn int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// DispatchConfig tunes the real-time dispatch core.
type DispatchConfig struct {
	// LocationTTL is the freshness window for the cached latest location.
	// A cache read past this window behaves as "no known location".
	LocationTTL time.Duration
	// OfferExpiry bounds how long a delivery offer stays open.
	OfferExpiry time.Duration
	// AssumedSpeedKMH is the average speed used for ETA computation.
	AssumedSpeedKMH float64
	// SearchRadiusKM is the initial candidate search radius.
	SearchRadiusKM float64
	// MaxSearchRadiusKM caps progressive radius expansion.
	MaxSearchRadiusKM float64
	// MaxCandidates bounds the number of drivers an offer is sent to.
	MaxCandidates int
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "swiftdrop"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdle:  getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
		},
		Redis: RedisConfig{
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			MaxRetries:  getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 100),
			MinIdleConn: 10,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 3 * time.Second,
		},
		NewRelic: NewRelicConfig{
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			AppName:    getEnv("NEW_RELIC_APP_NAME", "SwiftDrop-Dispatch"),
			Enabled:    getEnvAsBool("NEW_RELIC_ENABLED", false),
		},
		Dispatch: DispatchConfig{
			LocationTTL:       time.Duration(getEnvAsInt("DISPATCH_LOCATION_TTL_SECONDS", 120)) * time.Second,
			OfferExpiry:       time.Duration(getEnvAsInt("DISPATCH_OFFER_EXPIRY_SECONDS", 30)) * time.Second,
			AssumedSpeedKMH:   getEnvAsFloat64("DISPATCH_ASSUMED_SPEED_KMH", 30.0),
			SearchRadiusKM:    getEnvAsFloat64("DISPATCH_SEARCH_RADIUS_KM", 5.0),
			MaxSearchRadiusKM: getEnvAsFloat64("DISPATCH_MAX_SEARCH_RADIUS_KM", 50.0),
			MaxCandidates:     getEnvAsInt("DISPATCH_MAX_CANDIDATES", 10),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.Dispatch.LocationTTL <= 0 {
		return fmt.Errorf("DISPATCH_LOCATION_TTL_SECONDS must be positive")
	}
	if c.Dispatch.OfferExpiry <= 0 {
		return fmt.Errorf("DISPATCH_OFFER_EXPIRY_SECONDS must be positive")
	}
	if c.Dispatch.AssumedSpeedKMH <= 0 {
		return fmt.Errorf("DISPATCH_ASSUMED_SPEED_KMH must be positive")
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
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

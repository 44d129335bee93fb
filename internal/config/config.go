/*
Package config reads the service configuration from the environment.
A .env file in the working directory is loaded automatically.
*/
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port int

	// StoreDriver selects the Repository backend: "postgres" or "sqlite".
	StoreDriver string
	SQLitePath  string
	DBHost      string
	DBPort      string
	DBDatabase  string
	DBUsername  string
	DBPassword  string
	DBSchema    string

	// SessionSecret is the HMAC key for bearer tokens.
	SessionSecret string

	// GeminiAPIKey enables the generative path when set.
	GeminiAPIKey string
	GeminiRPS    float64

	ProfileCacheSize int
	ProfileCacheTTL  time.Duration
	WarmupHour       int
	Timezone         string
}

func Load() (*Config, error) {
	cfg := &Config{
		StoreDriver:   getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "traipulse.db"),
		DBHost:        getEnv("BLUEPRINT_DB_HOST", "localhost"),
		DBPort:        getEnv("BLUEPRINT_DB_PORT", "5432"),
		DBDatabase:    getEnv("BLUEPRINT_DB_DATABASE", ""),
		DBUsername:    getEnv("BLUEPRINT_DB_USERNAME", ""),
		DBPassword:    getEnv("BLUEPRINT_DB_PASSWORD", ""),
		DBSchema:      getEnv("BLUEPRINT_DB_SCHEMA", "public"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		Timezone:      getEnv("TIMEZONE", "UTC"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.ProfileCacheSize, err = getInt("PROFILE_CACHE_SIZE", 512); err != nil {
		return nil, err
	}
	if cfg.WarmupHour, err = getInt("WARMUP_HOUR", 4); err != nil {
		return nil, err
	}
	if cfg.GeminiRPS, err = getFloat("GEMINI_RPS", 1); err != nil {
		return nil, err
	}
	ttl := getEnv("PROFILE_CACHE_TTL", "6h")
	if cfg.ProfileCacheTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("PROFILE_CACHE_TTL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DBDatabase == "" || c.DBUsername == "" {
			return fmt.Errorf("BLUEPRINT_DB_DATABASE and BLUEPRINT_DB_USERNAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", c.StoreDriver)
	}
	if c.WarmupHour < 0 || c.WarmupHour > 23 {
		return fmt.Errorf("WARMUP_HOUR must be 0-23, got %d", c.WarmupHour)
	}
	if c.ProfileCacheSize <= 0 {
		return fmt.Errorf("PROFILE_CACHE_SIZE must be positive")
	}
	if c.GeminiRPS <= 0 {
		return fmt.Errorf("GEMINI_RPS must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

// DSN returns the connection string for the selected driver.
func (c *Config) DSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		url.QueryEscape(c.DBUsername), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBDatabase, c.DBSchema)
}

// Location returns the configured timezone; validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

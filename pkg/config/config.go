package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gemini     GeminiConfig
	HealthData HealthDataConfig
	Overpass   OverpassConfig
	Auth       AuthConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GeminiConfig holds generative model configuration
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int
	Timeout         time.Duration
}

// HealthDataConfig holds the public health statistics API configuration
type HealthDataConfig struct {
	BaseURL         string
	CacheTTLSeconds int
	Timeout         time.Duration
}

// OverpassConfig holds the point-of-interest query API configuration
type OverpassConfig struct {
	URL             string
	DefaultRadiusKm float64
	Timeout         time.Duration
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from an optional .env file and environment variables.
// Variables already present in the environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost", "http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "diagnosai"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			MaxOutputTokens: getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 300),
			Timeout:         getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
		HealthData: HealthDataConfig{
			BaseURL:         getEnv("CDC_BASE_URL", "https://api.cdc.gov/endpoint"),
			CacheTTLSeconds: getEnvAsInt("HEALTH_DATA_CACHE_TTL", 3600),
			Timeout:         getEnvAsDuration("CDC_TIMEOUT", 10*time.Second),
		},
		Overpass: OverpassConfig{
			URL:             getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			DefaultRadiusKm: getEnvAsFloat("REFERRAL_RADIUS_KM", 10),
			Timeout:         getEnvAsDuration("OVERPASS_TIMEOUT", 25*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "diagnosai"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "diagnosai-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// Validate checks settings that have no safe default outside development.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && !c.IsDevelopment() {
		return errors.New("JWT_SECRET is required outside development")
	}
	if c.Overpass.DefaultRadiusKm <= 0 {
		return fmt.Errorf("REFERRAL_RADIUS_KM must be positive, got %v", c.Overpass.DefaultRadiusKm)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

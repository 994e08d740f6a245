// Package config loads the application configuration from environment variables.
// Required variables that are missing and values that do not parse are collected
// and reported together, so a misconfigured deployment fails with one message.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PoolConfig represents configuration for the database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds session-related configuration.
type AuthConfig struct {
	JWTSecret       string        // Secret key for signing session tokens
	SessionDuration time.Duration // Lifetime of the session cookie
	SecureCookies   bool          // Set the Secure flag on the session cookie
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      string
	ViewsDir  string // Directory holding main.html, home.html, ... and partials/
	StaticDir string // Directory served under /static/
}

// PopularConfig controls the background popular-authors refresher.
type PopularConfig struct {
	RefreshInterval time.Duration
	Limit           int
}

// AvatarConfig describes the S3-compatible bucket for profile pictures.
// Uploads are disabled when Bucket is empty.
type AvatarConfig struct {
	Bucket    string
	Region    string
	Endpoint  string // Optional, for MinIO and other S3-compatible stores
	PublicURL string // Base URL the uploaded objects are reachable at
	AccessKey string
	SecretKey string
}

// Enabled reports whether avatar uploads are configured.
func (c AvatarConfig) Enabled() bool {
	return c.Bucket != ""
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB       *PoolConfig
	Auth     *AuthConfig
	Server   *ServerConfig
	Popular  *PopularConfig
	Avatars  *AvatarConfig
	LogLevel string
}

func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

func getOptionalEnvBool(key string, defaultValue bool, errors *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// `time.ParseDuration` expects a string like "15m", "1h30s".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampInt keeps value within [lo, hi] and records a note when it had to move it.
func clampInt(value, lo, hi int, varName string, errors *[]string) int {
	if value < lo {
		*errors = append(*errors, fmt.Sprintf("%s (%d) is less than minimum %d", varName, value, lo))
		return lo
	}
	if value > hi {
		*errors = append(*errors, fmt.Sprintf("%s (%d) is greater than maximum %d", varName, value, hi))
		return hi
	}
	return value
}

// LoadConfig creates an AppConfig from environment variables.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	dbPool := &PoolConfig{
		User:     getRequiredEnv("DB_USER", &errors),
		Password: getRequiredEnv("DB_PASSWORD", &errors),
		DBName:   getRequiredEnv("DB_NAME", &errors),
		Host:     getOptionalEnv("DB_HOST", "localhost"),
		Port:     getOptionalEnvInt("DB_PORT", 5432, &errors),
		MaxSize:  clampInt(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors), 2, 100, "DB_POOL_SIZE", &errors),
	}

	authConfig := &AuthConfig{
		JWTSecret:       getRequiredEnv("JWT_SECRET", &errors),
		SessionDuration: getOptionalEnvDuration("SESSION_DURATION", 7*24*time.Hour, &errors),
		SecureCookies:   getOptionalEnvBool("SECURE_COOKIES", false, &errors),
	}
	if authConfig.JWTSecret != "" && len(authConfig.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters long")
	}
	if authConfig.SessionDuration <= 0 {
		errors = append(errors, "SESSION_DURATION must be positive")
	}

	serverConfig := &ServerConfig{
		Port:      getOptionalEnv("PORT", "8080"),
		ViewsDir:  getOptionalEnv("VIEWS_DIR", "views"),
		StaticDir: getOptionalEnv("STATIC_DIR", "static"),
	}

	popularConfig := &PopularConfig{
		RefreshInterval: getOptionalEnvDuration("POPULAR_REFRESH_INTERVAL", 5*time.Minute, &errors),
		Limit:           clampInt(getOptionalEnvInt("POPULAR_LIMIT", 5, &errors), 1, 50, "POPULAR_LIMIT", &errors),
	}
	if popularConfig.RefreshInterval <= 0 {
		errors = append(errors, "POPULAR_REFRESH_INTERVAL must be positive")
	}

	avatarConfig := &AvatarConfig{
		Bucket:    getOptionalEnv("AVATAR_BUCKET", ""),
		Region:    getOptionalEnv("AVATAR_REGION", "us-east-1"),
		Endpoint:  getOptionalEnv("AVATAR_ENDPOINT", ""),
		PublicURL: strings.TrimRight(getOptionalEnv("AVATAR_PUBLIC_URL", ""), "/"),
		AccessKey: getOptionalEnv("AVATAR_ACCESS_KEY", ""),
		SecretKey: getOptionalEnv("AVATAR_SECRET_KEY", ""),
	}
	if avatarConfig.Enabled() && avatarConfig.PublicURL == "" {
		errors = append(errors, "AVATAR_PUBLIC_URL is required when AVATAR_BUCKET is set")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		DB:       dbPool,
		Auth:     authConfig,
		Server:   serverConfig,
		Popular:  popularConfig,
		Avatars:  avatarConfig,
		LogLevel: getOptionalEnv("LOG_LEVEL", "info"),
	}, nil
}

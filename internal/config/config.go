package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	ClassroomBaseURL   string
	TokenURL           string
	DirectoryBaseURL   string
	OAuthClientID      string
	OAuthClientSecret  string
	TokenRefreshMargin time.Duration
	AnalyticsCacheTTL  time.Duration
	UpstreamTimeout    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSMIRROR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClassMirror API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("classroom.base_url", "https://classroom.googleapis.com")
	v.SetDefault("token.url", "https://oauth2.googleapis.com/token")
	v.SetDefault("directory.base_url", "https://admin.googleapis.com")
	v.SetDefault("token.refresh_margin", "2m")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("upstream.timeout", "30s")

	margin, err := time.ParseDuration(v.GetString("token.refresh_margin"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid token refresh margin: %w", err)
	}

	ttl, err := time.ParseDuration(v.GetString("analytics.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics cache ttl: %w", err)
	}

	timeout, err := time.ParseDuration(v.GetString("upstream.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid upstream timeout: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		ClassroomBaseURL:   v.GetString("classroom.base_url"),
		TokenURL:           v.GetString("token.url"),
		DirectoryBaseURL:   v.GetString("directory.base_url"),
		OAuthClientID:      v.GetString("oauth.client_id"),
		OAuthClientSecret:  v.GetString("oauth.client_secret"),
		TokenRefreshMargin: margin,
		AnalyticsCacheTTL:  ttl,
		UpstreamTimeout:    timeout,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.OAuthClientID == "" || cfg.OAuthClientSecret == "" {
		return Config{}, fmt.Errorf("oauth client credentials must be provided")
	}

	return cfg, nil
}

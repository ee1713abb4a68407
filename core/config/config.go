package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel        OTelConfig
	LLM         LLMConfig
	GitHub      OAuthProviderConfig
	GitLab      OAuthProviderConfig
	Session     SessionConfig
	Env         string
	Port        string
	AppBaseURL  string
	DatabaseURL string
	RedisURL    string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type LLMConfig struct {
	Provider  string // "gemini" or "openai"
	APIKey    string
	BaseURL   string // Optional: custom API endpoint
	Model     string
	MaxTokens int
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	InstanceURL  string // GitLab only: self-hosted instance base URL
}

type SessionConfig struct {
	AuthKey       string
	EncryptionKey string
	TTLHours      int
}

// Load loads configuration from environment variables. In development it
// first loads .env from the working directory.
func Load() (Config, error) {
	if getEnv("MAPCHAT_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	appBaseURL := strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/")

	cfg := Config{
		Env:         getEnv("MAPCHAT_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		AppBaseURL:  appBaseURL,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "mapchat"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		LLM: LLMConfig{
			Provider:  getEnv("LLM_PROVIDER", "gemini"),
			APIKey:    getEnv("LLM_API_KEY", ""),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			Model:     getEnv("LLM_MODEL", "gemini-2.5-flash"),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 2048),
		},
		GitHub: OAuthProviderConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GITHUB_REDIRECT_URI", appBaseURL+"/api/auth/github/callback"),
		},
		GitLab: OAuthProviderConfig{
			ClientID:     getEnv("GITLAB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITLAB_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GITLAB_REDIRECT_URI", appBaseURL+"/api/auth/gitlab/callback"),
			InstanceURL:  strings.TrimSuffix(getEnv("GITLAB_INSTANCE_URL", "https://gitlab.com"), "/"),
		},
		Session: SessionConfig{
			AuthKey:       getEnv("SESSION_AUTH_KEY", ""),
			EncryptionKey: getEnv("SESSION_ENCRYPTION_KEY", ""),
			TTLHours:      getEnvInt("SESSION_TTL_HOURS", 24),
		},
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required")
	}
	if cfg.Session.AuthKey == "" {
		return Config{}, fmt.Errorf("SESSION_AUTH_KEY is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c OAuthProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// Package config provides application configuration management with environment
// variable loading, validation, and sensible defaults. It supports .env files
// for local development and validates settings on startup.
//
// Credentials for the identity provider and the document store are deliberately
// NOT required by Load: a missing project id or service-account credential is
// reported as a configuration error on the first request that needs it, so the
// health endpoints stay reachable on a half-configured deployment.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//
//	server := &http.Server{
//	    Addr: ":" + cfg.Server.Port,
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store driver names accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSupabase = "supabase"
)

// Language model providers accepted by LLM_PROVIDER.
const (
	LLMProviderNone   = ""
	LLMProviderHTTP   = "http"
	LLMProviderGemini = "gemini"
)

// Config holds all configuration for the application.
type Config struct {
	Server         ServerConfig
	Identity       IdentityConfig
	ServiceAccount ServiceAccountConfig
	Store          StoreConfig
	Database       DatabaseConfig
	Supabase       SupabaseConfig
	Redis          RedisConfig
	CORS           CORSConfig
	RateLimit      RateLimitConfig
	Cache          CacheConfig
	LLM            LLMConfig
	Forecast       ForecastConfig
	Telemetry      TelemetryConfig
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port        string
	Environment string
}

// IdentityConfig describes the third-party identity provider whose bearer
// tokens are accepted on protected endpoints.
type IdentityConfig struct {
	ProjectID string // Expected audience; issuer is derived from it
	JWKSURL   string // Public key set endpoint
}

// Issuer returns the issuer URL tokens must carry for the configured project.
func (c *IdentityConfig) Issuer() string {
	return "https://securetoken.google.com/" + c.ProjectID
}

// ServiceAccountConfig holds the credential used to mint access tokens for
// the document store.
type ServiceAccountConfig struct {
	CredentialJSON string // Raw service-account JSON (client_email + private_key)
	TokenURL       string // OAuth2 token endpoint
	Scope          string
	DocumentsURL   string // Base URL of the document store REST API (without the project path)
}

// StoreConfig selects the relational store backend for sessions, messages
// and logistics routes.
type StoreConfig struct {
	Driver string // "postgres" or "supabase"
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	MaxConns int // Maximum number of connections in the pool
}

// SupabaseConfig holds Supabase REST connection settings.
type SupabaseConfig struct {
	URL        string
	ServiceKey string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// CORSConfig holds the origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds rate limiting configuration for the chat endpoint.
type RateLimitConfig struct {
	RequestsPerMinute int
	WindowDuration    time.Duration
}

// CacheConfig holds cache TTLs.
type CacheConfig struct {
	ForecastTTL time.Duration
	Enabled     bool
}

// LLMConfig configures the optional language-model fallback.
type LLMConfig struct {
	Provider string // "", "http" or "gemini"
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// ForecastConfig configures the weather forecast proxy.
type ForecastConfig struct {
	URL     string
	Timeout time.Duration
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads and validates configuration from environment variables.
// It attempts to load a .env file if present but doesn't fail if the file
// is missing.
//
// Returns an error if validation fails.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENV", "development"),
		},
		Identity: IdentityConfig{
			ProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
			JWKSURL:   getEnv("JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"),
		},
		ServiceAccount: ServiceAccountConfig{
			CredentialJSON: getEnv("FIREBASE_SERVICE_ACCOUNT", ""),
			TokenURL:       getEnv("TOKEN_URL", "https://oauth2.googleapis.com/token"),
			Scope:          getEnv("DOCUMENT_STORE_SCOPE", "https://www.googleapis.com/auth/datastore"),
			DocumentsURL:   getEnv("FIRESTORE_BASE_URL", "https://firestore.googleapis.com/v1"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			Database: getEnv("POSTGRES_DB", "asha"),
			User:     getEnv("POSTGRES_USER", "asha"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 25),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 50),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
			WindowDuration:    getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Cache: CacheConfig{
			ForecastTTL: getEnvAsDuration("CACHE_FORECAST_TTL", 30*time.Minute),
			Enabled:     getEnv("CACHE_ENABLED", "true") == "true",
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", LLMProviderNone),
			Endpoint: getEnv("LLM_ENDPOINT", ""),
			APIKey:   firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("GEMINI_API_KEY")),
			Model:    getEnv("LLM_MODEL", "gemini-2.0-flash"),
			Timeout:  getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		},
		Forecast: ForecastConfig{
			URL:     getEnv("FORECAST_URL", ""),
			Timeout: getEnvAsDuration("FORECAST_TIMEOUT", 8*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnv("OTEL_ENABLED", "false") == "true",
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "asha"),
		},
	}

	if config.LLM.Provider == LLMProviderNone && config.LLM.Endpoint != "" {
		config.LLM.Provider = LLMProviderHTTP
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the structural validity of the configuration: ports are
// integers, URLs parse, and the selected store driver has its connection
// settings.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be a valid integer: %w", err)
	}

	if _, err := strconv.Atoi(c.Redis.Port); err != nil {
		return fmt.Errorf("redis port must be a valid integer: %w", err)
	}

	if _, err := url.ParseRequestURI(c.Identity.JWKSURL); err != nil {
		return fmt.Errorf("invalid JWKS URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.ServiceAccount.TokenURL); err != nil {
		return fmt.Errorf("invalid token URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.ServiceAccount.DocumentsURL); err != nil {
		return fmt.Errorf("invalid document store URL: %w", err)
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if _, err := strconv.Atoi(c.Database.Port); err != nil {
			return fmt.Errorf("database port must be a valid integer: %w", err)
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required")
		}
	case StoreDriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("supabase URL and service key are required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.LLM.Provider {
	case LLMProviderNone:
	case LLMProviderHTTP:
		if _, err := url.ParseRequestURI(c.LLM.Endpoint); err != nil {
			return fmt.Errorf("invalid LLM endpoint: %w", err)
		}
	case LLMProviderGemini:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("gemini provider requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.Provider)
	}

	if c.Forecast.URL != "" {
		if _, err := url.ParseRequestURI(c.Forecast.URL); err != nil {
			return fmt.Errorf("invalid forecast URL: %w", err)
		}
	}

	return nil
}

// DSN returns the PostgreSQL connection string for the lib/pq driver.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database,
	)
}

// Address returns the Redis server address in "host:port" format.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a default fallback.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// ("300ms", "1.5h", "2h45m") with a default fallback.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice parses a comma-separated environment variable, trimming
// whitespace and skipping empty items.
//
//	// ALLOWED_ORIGINS=https://app.example.com, https://admin.example.com
//	origins := getEnvAsSlice("ALLOWED_ORIGINS", nil)
//	// ["https://app.example.com", "https://admin.example.com"]
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

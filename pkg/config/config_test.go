package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("ALLOWED_ORIGINS", " https://app.mkulima.co.ke, ,http://localhost:5173 ")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")
	t.Setenv("LLM_ENDPOINT", "https://llm.internal/generate")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"https://app.mkulima.co.ke", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.RateLimit.WindowDuration)
	assert.Equal(t, LLMProviderHTTP, cfg.LLM.Provider, "an endpoint alone selects the HTTP provider")
	assert.Equal(t, "https://securetoken.google.com/demo", (&IdentityConfig{ProjectID: "demo"}).Issuer())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:         ServerConfig{Port: "8080"},
			Identity:       IdentityConfig{JWKSURL: "https://keys.example/jwk"},
			ServiceAccount: ServiceAccountConfig{TokenURL: "https://oauth2.example/token", DocumentsURL: "https://docs.example/v1"},
			Store:          StoreConfig{Driver: StoreDriverPostgres},
			Database:       DatabaseConfig{Port: "5432", Password: "pw"},
			Redis:          RedisConfig{Port: "6379"},
		}
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"non-numeric port":       func(c *Config) { c.Server.Port = "http" },
		"bad jwks url":           func(c *Config) { c.Identity.JWKSURL = "keys" },
		"missing db password":    func(c *Config) { c.Database.Password = "" },
		"unknown driver":         func(c *Config) { c.Store.Driver = "mysql" },
		"supabase without key":   func(c *Config) { c.Store.Driver = StoreDriverSupabase; c.Supabase.URL = "https://x.supabase.co" },
		"gemini without api key": func(c *Config) { c.LLM.Provider = LLMProviderGemini },
		"unknown llm provider":   func(c *Config) { c.LLM.Provider = "openai" },
		"bad forecast url":       func(c *Config) { c.Forecast.URL = "weather" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	t.Run("supabase with settings", func(t *testing.T) {
		c := valid()
		c.Store.Driver = StoreDriverSupabase
		c.Database.Password = ""
		c.Supabase = SupabaseConfig{URL: "https://x.supabase.co", ServiceKey: "k"}
		assert.NoError(t, c.Validate())
	})
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "asha", Password: "pw", Database: "asha"}
	assert.Equal(t, "host=db port=5432 user=asha password=pw dbname=asha sslmode=disable", c.DSN())
	assert.Equal(t, "cache:6380", (&RedisConfig{Host: "cache", Port: "6380"}).Address())
}

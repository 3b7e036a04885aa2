package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("MANAGER_SCOPE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "all", cfg.ManagerScope)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("MANAGER_SCOPE", "direct_reports")
	t.Setenv("ROLLUP_INTERVAL", "1m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "direct_reports", cfg.ManagerScope)
	assert.Equal(t, time.Minute, cfg.RollupInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	base := Config{
		Environment:        EnvDevelopment,
		JWTSecret:          "secret",
		TokenTTL:           time.Hour,
		ManagerScope:       "all",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad scope", mutate: func(c *Config) { c.ManagerScope = "department" }, wantErr: true},
		{name: "small body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = 0 }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
		{name: "production dev secret", mutate: func(c *Config) {
			c.Environment = EnvProduction
			c.JWTSecret = devJWTSecret
			c.DatabaseURL = "postgres://x"
		}, wantErr: true},
		{name: "production without database", mutate: func(c *Config) { c.Environment = EnvProduction }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

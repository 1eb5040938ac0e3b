package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"MAX_GENERATIONS", "MAX_ATTEMPTS", "IMAGE_BACKEND", "VERIFIER_PROVIDER", "QUOTA_STORE",
		"BRAND_ALLOW_LIST", "STRICT_BRAND_MODE", "GENERATION_TIMEOUT_SECONDS", "IMAGE_ASPECT_RATIO",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 2, cfg.MaxGenerations)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, "openai", cfg.ImageBackend)
	assert.Equal(t, "openai", cfg.VerifierProvider)
	assert.Equal(t, "memory", cfg.QuotaStore)
	assert.Equal(t, "1:1", cfg.ImageAspectRatio)
	assert.Empty(t, cfg.BrandAllowList)
	assert.False(t, cfg.StrictBrandMode)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MAX_GENERATIONS", "5")
	t.Setenv("MAX_ATTEMPTS", "not-a-number")
	t.Setenv("IMAGE_BACKEND", "Gemini")
	t.Setenv("VERIFIER_PROVIDER", "")
	t.Setenv("BRAND_ALLOW_LIST", " Nike, ,Adidas ")
	t.Setenv("STRICT_BRAND_MODE", "true")

	cfg := Load()
	assert.Equal(t, 5, cfg.MaxGenerations)
	assert.Equal(t, 2, cfg.MaxAttempts, "unparsable values fall back to the default")
	assert.Equal(t, "gemini", cfg.ImageBackend)
	assert.Equal(t, "gemini", cfg.VerifierProvider, "verifier follows the image backend")
	assert.Equal(t, []string{"Nike", "Adidas"}, cfg.BrandAllowList)
	assert.True(t, cfg.StrictBrandMode)
}

func validConfig() *Config {
	return &Config{
		MaxGenerations:    2,
		MaxAttempts:       2,
		GenerationTimeout: time.Minute,
		ImageBackend:      "openai",
		VerifierProvider:  "openai",
		QuotaStore:        "memory",
		OpenAIAPIKey:      "sk-test",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero generations", func(c *Config) { c.MaxGenerations = 0 }, "MAX_GENERATIONS"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "MAX_ATTEMPTS"},
		{"missing backend key", func(c *Config) { c.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
		{"unknown backend", func(c *Config) { c.ImageBackend = "dalle" }, "unknown IMAGE_BACKEND"},
		{"verifier without key", func(c *Config) {
			c.VerificationEnabled = true
			c.VerifierProvider = "gemini"
		}, "GEMINI_API_KEY"},
		{"verifier disabled skips its key", func(c *Config) { c.VerifierProvider = "gemini" }, ""},
		{"postgres without url", func(c *Config) { c.QuotaStore = "postgres" }, "DATABASE_URL"},
		{"redis without url", func(c *Config) { c.QuotaStore = "redis" }, "REDIS_URL"},
		{"unknown store", func(c *Config) { c.QuotaStore = "etcd" }, "unknown QUOTA_STORE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

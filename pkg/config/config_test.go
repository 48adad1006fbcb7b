package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "API_PREFIX", "REGISTRATION_ADMIN_CODE", "ADMIN_RESET_PASSWORD", "RESET_TOKEN_TTL", "UPLOADS_DIR", "UPLOADS_MAX_FILE_SIZE", "SEED_ADMIN_PASSWORD", "SENDGRID_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "ADMIN123", cfg.Registration.AdminCode)
	assert.Equal(t, "password123", cfg.Registration.AdminResetPassword)
	assert.Equal(t, 24*time.Hour, cfg.Registration.ResetTokenTTL)
	assert.Equal(t, "./uploads", cfg.Uploads.Dir)
	assert.EqualValues(t, 10*1024*1024, cfg.Uploads.MaxFileSizeBytes)
	assert.Equal(t, "admin123", cfg.Seed.AdminPassword)
	assert.Empty(t, cfg.Mail.SendgridAPIKey)
	assert.False(t, cfg.IsProduction())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("REGISTRATION_ADMIN_CODE", "LECT-42")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "LECT-42", cfg.Registration.AdminCode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

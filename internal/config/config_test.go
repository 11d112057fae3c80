package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ATTENDANCE_DB_DRIVER", "")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "")

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "sqlite3", cfg.AttendanceDBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.False(t, cfg.Production())
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")
	t.Setenv("ACCESS_TTL", "1h")
	t.Setenv("SESSION_SECURE", "true")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 5, cfg.RateLimitPerMin)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.True(t, cfg.SessionSecure)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("OCR_TIMEOUT", "soon")
	t.Setenv("SESSION_SECURE", "maybe")

	cfg := Load()
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, 30*time.Second, cfg.OCRTimeout)
	assert.False(t, cfg.SessionSecure)
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example, ,https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Load().CORSOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Empty(t, Load().CORSOrigins)
}

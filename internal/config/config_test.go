package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "DATABASE_URL", "JWT_SECRET", "JWT_TTL",
		"STORAGE_ENDPOINT", "STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY", "STORAGE_BUCKET", "STORAGE_USE_SSL",
		"UPLOAD_MAX_BYTES", "UPLOAD_MIN_DIMENSION", "UPLOAD_THUMBNAIL_WIDTH", "UPLOAD_BATCH_WORKERS",
		"SIGNED_URL_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sitecost.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 100, cfg.Upload.MinDimension)
	assert.Equal(t, 400, cfg.Upload.ThumbnailWidth)
	assert.Equal(t, 10, cfg.Upload.BatchWorkers)
	assert.Equal(t, time.Hour, cfg.Upload.SignedURLTTL)
	assert.Equal(t, "sitecost-receipts", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.UseSSL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("UPLOAD_MAX_BYTES", "5242880")
	t.Setenv("SIGNED_URL_TTL", "30m")
	t.Setenv("STORAGE_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 30*time.Minute, cfg.Upload.SignedURLTTL)
	assert.True(t, cfg.Storage.UseSSL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_TTL", "one day")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_TTL")
}

func TestLoad_ProdRequiresRealSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret-of-length")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.AppEnv)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid configuration")
}

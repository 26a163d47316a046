package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sitecost/internal/pkg/validator"
)

const (
	defaultHTTPAddr       = ":8080"
	defaultJWTSecret      = "change-me-jwt-secret"
	defaultJWTTTL         = "24h"
	defaultDatabaseURL    = "sitecost.db"
	defaultStorageBucket  = "sitecost-receipts"
	defaultMaxUploadBytes = 10 << 20 // 10 MB
	defaultMinDimension   = 100
	defaultThumbnailWidth = 400
	defaultSignedURLTTL   = "1h"
	defaultBatchWorkers   = 10
)

type StorageConfig struct {
	Endpoint  string `validate:"required"`
	AccessKey string
	SecretKey string
	Bucket    string `validate:"required"`
	UseSSL    bool
}

type UploadConfig struct {
	MaxBytes       int64 `validate:"gt=0"`
	MinDimension   int   `validate:"gt=0"`
	ThumbnailWidth int   `validate:"gt=0"`
	SignedURLTTL   time.Duration
	BatchWorkers   int `validate:"gt=0"`
}

type Config struct {
	AppEnv      string `validate:"required"`
	HTTPAddr    string `validate:"required"`
	DatabaseURL string `validate:"required"`
	JWTSecret   string `validate:"required,min=12"`
	JWTTTL      time.Duration
	Storage     StorageConfig
	Upload      UploadConfig
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", defaultHTTPAddr)
	cfg.DatabaseURL = getEnv("DATABASE_URL", defaultDatabaseURL)
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.Storage = StorageConfig{
		Endpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		SecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		Bucket:    getEnv("STORAGE_BUCKET", defaultStorageBucket),
		UseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
	}

	cfg.Upload = UploadConfig{
		MaxBytes:       getInt64Env("UPLOAD_MAX_BYTES", defaultMaxUploadBytes),
		MinDimension:   int(getInt64Env("UPLOAD_MIN_DIMENSION", defaultMinDimension)),
		ThumbnailWidth: int(getInt64Env("UPLOAD_THUMBNAIL_WIDTH", defaultThumbnailWidth)),
		BatchWorkers:   int(getInt64Env("UPLOAD_BATCH_WORKERS", defaultBatchWorkers)),
	}
	cfg.Upload.SignedURLTTL, err = parseDurationEnv("SIGNED_URL_TTL", defaultSignedURLTTL)
	if err != nil {
		return nil, err
	}

	if cfg.AppEnv == "prod" && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in prod")
	}

	if fields := validator.Validate(cfg); fields != nil {
		return nil, fmt.Errorf("invalid configuration: %v", fields)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration in %s: %w", key, err)
	}
	return d, nil
}

// Package config reads the radolanserv settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Catalog sources.
const (
	SourceDir = "dir"
	SourceS3  = "s3"
	SourceGCS = "gcs"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Source  string
	DataDir string
	Bucket  string
	Prefix  string

	AWSRegion       string
	GCSCredentials  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	MissingValue    int32
	CacheSize       int
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults where unset. Values from
// a .env file in the working directory are used for variables not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	} else if err == nil {
		logrus.Debug("loaded .env")
	}

	missing, err := strconv.ParseInt(getEnv("MISSING_VALUE", "-9999"), 10, 32)
	if err != nil {
		return nil, errors.New("invalid MISSING_VALUE")
	}

	cacheSize, err := strconv.Atoi(getEnv("CACHE_SIZE", "64"))
	if err != nil || cacheSize <= 0 {
		return nil, errors.New("invalid CACHE_SIZE")
	}

	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	cfg := &Config{
		Source:          getEnv("RADOLAN_SOURCE", SourceDir),
		DataDir:         getEnv("RADOLAN_DATA_DIR", "."),
		Bucket:          os.Getenv("RADOLAN_BUCKET"),
		Prefix:          os.Getenv("RADOLAN_PREFIX"),
		AWSRegion:       getEnv("AWS_REGION", "eu-central-1"),
		GCSCredentials:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		HTTPAddr:        getEnv("HTTP_ADDR", "0.0.0.0:8081"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		MissingValue:    int32(missing),
		CacheSize:       cacheSize,
		ShutdownTimeout: shutdownTimeout,
	}

	switch cfg.Source {
	case SourceDir:
		if cfg.DataDir == "" {
			return nil, errors.New("RADOLAN_DATA_DIR is required")
		}
	case SourceS3, SourceGCS:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("RADOLAN_BUCKET is required for source %s", cfg.Source)
		}
	default:
		return nil, fmt.Errorf("invalid RADOLAN_SOURCE %q", cfg.Source)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}

// getEnv returns the value of key, or defaultVal when it is unset or empty.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

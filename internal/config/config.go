// Package config loads server configuration from an optional YAML file with
// environment-variable overrides. Environment wins so container deployments
// never need a file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Addr the HTTP server binds to, e.g. ":8080".
	Addr string `yaml:"addr"`

	// GinMode is "debug", "release" or "test".
	GinMode string `yaml:"gin_mode"`

	// DBPath is the sqlite database file.
	DBPath string `yaml:"db_path"`

	// SeedFile, when present, is loaded into the manga table at boot.
	SeedFile string `yaml:"seed_file"`

	// JWTSecret signs session tokens. Required outside debug mode.
	JWTSecret string `yaml:"jwt_secret"`

	Storage Storage `yaml:"storage"`

	// RateLimitPerSecond caps mutating requests per client IP. 0 disables.
	RateLimitPerSecond int `yaml:"rate_limit_per_second"`
}

type Storage struct {
	// Bucket is the GCS bucket objects are written to. Empty selects the
	// in-memory store (dev/test only).
	Bucket string `yaml:"bucket"`

	// CredentialsFile is the service-account key path. Needed for
	// presigned URLs; uploads can fall back to ambient credentials.
	CredentialsFile string `yaml:"credentials_file"`

	// PublicBaseURL is the domain public object URLs are built from,
	// e.g. "https://cdn.example.com".
	PublicBaseURL string `yaml:"public_base_url"`

	// MaxUploadBytes bounds a single uploaded file. Enforced server-side
	// on both upload paths.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

const defaultMaxUploadBytes = 10 << 20 // 10 MiB per image

func defaults() Config {
	return Config{
		Addr:               ":8080",
		GinMode:            "release",
		DBPath:             "./data/mangavault.db",
		JWTSecret:          "",
		RateLimitPerSecond: 10,
		Storage: Storage{
			MaxUploadBytes: defaultMaxUploadBytes,
		},
	}
}

// Load reads path (if non-empty and present) then applies env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Storage.MaxUploadBytes <= 0 {
		cfg.Storage.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.JWTSecret == "" && cfg.GinMode != "debug" && cfg.GinMode != "test" {
		return cfg, fmt.Errorf("MANGAVAULT_JWT_SECRET is required in release mode")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Addr, "MANGAVAULT_ADDR")
	setString(&cfg.GinMode, "MANGAVAULT_GIN_MODE")
	setString(&cfg.DBPath, "MANGAVAULT_DB_PATH")
	setString(&cfg.SeedFile, "MANGAVAULT_SEED_FILE")
	setString(&cfg.JWTSecret, "MANGAVAULT_JWT_SECRET")
	setString(&cfg.Storage.Bucket, "MANGAVAULT_STORAGE_BUCKET")
	setString(&cfg.Storage.CredentialsFile, "MANGAVAULT_STORAGE_CREDENTIALS")
	setString(&cfg.Storage.PublicBaseURL, "MANGAVAULT_STORAGE_PUBLIC_URL")
	setInt64(&cfg.Storage.MaxUploadBytes, "MANGAVAULT_MAX_UPLOAD_BYTES")
	setInt(&cfg.RateLimitPerSecond, "MANGAVAULT_RATE_LIMIT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

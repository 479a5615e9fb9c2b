// Package config provides configuration management for Veridian.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment
// variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string

	DatabaseURL string
	// StorageTimeout bounds every database and blob operation.
	StorageTimeout time.Duration

	// CatalogPath points at the control catalog YAML; empty means the
	// embedded default catalog.
	CatalogPath string
	// TierPolicyPath points at the BIA tier policy YAML; empty means the
	// compiled-in default policy.
	TierPolicyPath string

	// EvidenceBackend selects the blob backend: "local" or "s3".
	EvidenceBackend string
	EvidenceDir     string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string

	// RedisURL enables the compliance-level cache when set.
	RedisURL string

	// RateLimitRequests requests per RateLimitPeriod per client.
	RateLimitRequests int64
	RateLimitPeriod   string

	// MaxUploadBytes caps evidence upload size.
	MaxUploadBytes int64
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	storageTimeout := time.Duration(getEnvInt("STORAGE_TIMEOUT_SECONDS", 10)) * time.Second
	if storageTimeout <= 0 {
		storageTimeout = 10 * time.Second
	}

	maxUpload := int64(getEnvInt("MAX_UPLOAD_BYTES", 25<<20))
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}

	return ServerConfig{
		Environment:       env,
		ListenAddr:        getEnvStr("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		StorageTimeout:    storageTimeout,
		CatalogPath:       os.Getenv("CATALOG_PATH"),
		TierPolicyPath:    os.Getenv("TIER_POLICY_PATH"),
		EvidenceBackend:   getEnvStr("EVIDENCE_BACKEND", "local"),
		EvidenceDir:       getEnvStr("EVIDENCE_DIR", "./data/evidence"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          os.Getenv("S3_REGION"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:       os.Getenv("S3_SECRET_ACCESS_KEY"),
		RedisURL:          os.Getenv("REDIS_URL"),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 300)),
		RateLimitPeriod:   getEnvStr("RATE_LIMIT_PERIOD", "1m"),
		MaxUploadBytes:    maxUpload,
	}
}

// getEnvStr reads a string from an environment variable, returning the
// default if unset or blank.
func getEnvStr(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt reads an integer from an environment variable, returning the
// default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// Package config loads server configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds server configuration.
type Config struct {
	Port     string
	LogLevel string

	// DataDir hosts the file keystore and any other local state.
	DataDir string

	// KeystoreBackend selects file|sqlite|postgres|redis; KeystoreDSN is the
	// backend-specific address (path, URL or host:port).
	KeystoreBackend string
	KeystoreDSN     string

	// APIKeysSeed credits keys at startup, e.g. "key1:25000,key2:5000".
	APIKeysSeed string
	// AdminToken gates POST /v1/admin/credits.
	AdminToken string
	// Metered requires a bearer key on normalize/ingest and charges credits.
	Metered bool

	// ProfilesDir is scanned for schema_*.yaml registry extensions.
	ProfilesDir string

	// ValidateEvents re-checks every canonical event against its JSON Schema
	// before responding.
	ValidateEvents bool

	RateRPS   int
	RateBurst int

	// Telemetry enables the OpenTelemetry provider; OTLPEndpoint is the gRPC
	// collector address.
	Telemetry    bool
	OTLPEndpoint string
}

// Load reads configuration from the environment, applying defaults suited to
// a local single-process deployment.
func Load() *Config {
	dataDir := getenv("INGRESSKIT_DATA_DIR", "data")

	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		LogLevel:        getenv("LOG_LEVEL", "INFO"),
		DataDir:         dataDir,
		KeystoreBackend: getenv("INGRESSKIT_KEYSTORE", "file"),
		KeystoreDSN:     os.Getenv("INGRESSKIT_KEYSTORE_DSN"),
		APIKeysSeed:     os.Getenv("INGRESSKIT_API_KEYS"),
		AdminToken:      os.Getenv("INGRESSKIT_ADMIN_TOKEN"),
		ProfilesDir:     getenv("INGRESSKIT_PROFILES_DIR", "profiles"),
		ValidateEvents:  os.Getenv("INGRESSKIT_VALIDATE_EVENTS") == "true",
		RateRPS:         getint("INGRESSKIT_RATE_RPS", 20),
		RateBurst:       getint("INGRESSKIT_RATE_BURST", 40),
		Telemetry:       os.Getenv("INGRESSKIT_TELEMETRY") == "true",
		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.KeystoreDSN == "" {
		switch cfg.KeystoreBackend {
		case "file":
			cfg.KeystoreDSN = filepath.Join(dataDir, "balances.json")
		case "sqlite":
			cfg.KeystoreDSN = filepath.Join(dataDir, "balances.db")
		}
	}

	// Seeded keys imply metered mode, matching the hosted deployment.
	cfg.Metered = os.Getenv("INGRESSKIT_METERED") == "true" || cfg.APIKeysSeed != ""

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

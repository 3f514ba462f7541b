package keystore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Open constructs the backend selected by name:
//
//	file:     dsn is the JSON file path
//	sqlite:   dsn is the database file path
//	postgres: dsn is a postgres:// URL
//	redis:    dsn is host:port
func Open(backend, dsn string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dsn)
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	case "redis":
		return NewRedisStore(dsn, "", 0), nil
	default:
		return nil, fmt.Errorf("keystore: unknown backend %q", backend)
	}
}

// Seed credits keys from a "key1:25000,key2:5000" spec, as accepted in the
// INGRESSKIT_API_KEYS environment variable. Malformed pairs are logged and
// skipped.
func Seed(ctx context.Context, store Store, spec string, logger *slog.Logger) {
	if spec == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, pair := range strings.Split(spec, ",") {
		key, val, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		credits, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil || key == "" {
			logger.Warn("skipping malformed key seed entry", "entry", pair)
			continue
		}
		if _, err := store.Add(ctx, key, credits); err != nil {
			logger.Warn("seeding key failed", "error", err)
		}
	}
}

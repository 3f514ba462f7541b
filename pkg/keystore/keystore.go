// Package keystore persists API-key credit balances. The contract is a
// key→integer-balance map with get/set/add/charge; backends range from an
// atomically-replaced JSON file for single-process deployments to SQLite,
// Postgres and Redis for anything bigger.
package keystore

import (
	"context"
	"errors"
)

var (
	// ErrOutOfCredits is returned by Charge when the balance cannot cover it.
	ErrOutOfCredits = errors.New("keystore: out of credits")
	// ErrInvalidAmount is returned for a charge amount below 1.
	ErrInvalidAmount = errors.New("keystore: charge amount must be >= 1")
	// ErrEmptyKey is returned when the API key is empty.
	ErrEmptyKey = errors.New("keystore: key must not be empty")
)

// Store is the credit/key store contract. Implementations must be safe for
// concurrent use and must persist atomically.
type Store interface {
	// Get returns the balance for key; unknown keys read as 0.
	Get(ctx context.Context, key string) (int64, error)

	// Set overwrites the balance for key.
	Set(ctx context.Context, key string, balance int64) error

	// Add credits delta (may be negative) and returns the new balance.
	Add(ctx context.Context, key string, delta int64) (int64, error)

	// Charge deducts amount (>= 1) and returns the new balance, or
	// ErrOutOfCredits without deducting when the balance is insufficient.
	Charge(ctx context.Context, key string, amount int64) (int64, error)

	// Exists reports whether the key has ever been written.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases backend resources.
	Close() error
}

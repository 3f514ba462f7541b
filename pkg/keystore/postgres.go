package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore persists balances in PostgreSQL for multi-process
// deployments. Charges are single-statement conditional updates, so
// concurrent writers cannot overdraw a key.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to databaseURL and migrates the balances table.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("keystore: open postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing handle without migrating; used by tests.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the necessary database tables.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS balances (
		api_key TEXT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0
	);`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE api_key = $1`, key).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("keystore: get: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, balance int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (api_key, balance) VALUES ($1, $2)
		ON CONFLICT (api_key) DO UPDATE SET balance = EXCLUDED.balance
	`, key, balance)
	if err != nil {
		return fmt.Errorf("keystore: set: %w", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO balances (api_key, balance) VALUES ($1, $2)
		ON CONFLICT (api_key) DO UPDATE SET balance = balances.balance + EXCLUDED.balance
		RETURNING balance
	`, key, delta).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("keystore: add: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Charge(ctx context.Context, key string, amount int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if amount < 1 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE balances SET balance = balance - $1
		WHERE api_key = $2 AND balance >= $1
		RETURNING balance
	`, amount, key).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		current, gerr := s.Get(ctx, key)
		if gerr != nil {
			return 0, gerr
		}
		return current, ErrOutOfCredits
	}
	if err != nil {
		return 0, fmt.Errorf("keystore: charge: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM balances WHERE api_key = $1`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("keystore: exists: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

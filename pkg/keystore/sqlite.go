package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists balances in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite-backed store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("keystore: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing handle; used by tests.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS balances (
		api_key TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM balances WHERE api_key = ?`, key).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("keystore: get: %w", err)
	}
	return balance, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, balance int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (api_key, balance) VALUES (?, ?)
		ON CONFLICT(api_key) DO UPDATE SET balance = excluded.balance
	`, key, balance)
	if err != nil {
		return fmt.Errorf("keystore: set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO balances (api_key, balance) VALUES (?, ?)
		ON CONFLICT(api_key) DO UPDATE SET balance = balance + excluded.balance
		RETURNING balance
	`, key, delta).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("keystore: add: %w", err)
	}
	return balance, nil
}

func (s *SQLiteStore) Charge(ctx context.Context, key string, amount int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if amount < 1 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE balances SET balance = balance - ?
		WHERE api_key = ? AND balance >= ?
		RETURNING balance
	`, amount, key, amount).Scan(&balance)
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

func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM balances WHERE api_key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("keystore: exists: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

package keystore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps balances in a JSON file. Every write goes to a temp file in
// the same directory followed by a rename, so a crash never leaves a torn
// file. Suitable for single-process deployments.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore opens (creating if needed) a file-backed store at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("keystore: create data dir: %w", err)
		}
		if err := s.write(map[string]int64{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) read() (map[string]int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int64{}, nil
		}
		return nil, fmt.Errorf("keystore: read %s: %w", s.path, err)
	}
	balances := map[string]int64{}
	if len(data) == 0 {
		return balances, nil
	}
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("keystore: parse %s: %w", s.path, err)
	}
	return balances, nil
}

func (s *FileStore) write(balances map[string]int64) error {
	data, err := json.MarshalIndent(balances, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("keystore: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Get(_ context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balances, err := s.read()
	if err != nil {
		return 0, err
	}
	return balances[key], nil
}

func (s *FileStore) Set(_ context.Context, key string, balance int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balances, err := s.read()
	if err != nil {
		return err
	}
	balances[key] = balance
	return s.write(balances)
}

func (s *FileStore) Add(_ context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balances, err := s.read()
	if err != nil {
		return 0, err
	}
	balances[key] += delta
	if err := s.write(balances); err != nil {
		return 0, err
	}
	return balances[key], nil
}

func (s *FileStore) Charge(_ context.Context, key string, amount int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if amount < 1 {
		return 0, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balances, err := s.read()
	if err != nil {
		return 0, err
	}
	if balances[key] < amount {
		return balances[key], ErrOutOfCredits
	}
	balances[key] -= amount
	if err := s.write(balances); err != nil {
		return 0, err
	}
	return balances[key], nil
}

func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balances, err := s.read()
	if err != nil {
		return false, err
	}
	_, ok := balances[key]
	return ok, nil
}

func (s *FileStore) Close() error { return nil }

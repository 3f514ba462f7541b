package keystore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// chargeScript deducts atomically in Redis. Returns the new balance, or -1
// without deducting when the balance is insufficient.
// KEYS[1] = balance key, ARGV[1] = charge amount
var chargeScript = redis.NewScript(`
local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
local amount = tonumber(ARGV[1])
if balance < amount then
    return -1
end
return redis.call("DECRBY", KEYS[1], amount)
`)

// RedisStore keeps balances in Redis, one counter per key under the
// ingresskit:balance: prefix.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a Redis-backed store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func balanceKey(key string) string {
	return fmt.Sprintf("ingresskit:balance:%s", key)
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	balance, err := s.client.Get(ctx, balanceKey(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("keystore: redis get: %w", err)
	}
	return balance, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, balance int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.client.Set(ctx, balanceKey(key), balance, 0).Err(); err != nil {
		return fmt.Errorf("keystore: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Add(ctx context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	balance, err := s.client.IncrBy(ctx, balanceKey(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("keystore: redis add: %w", err)
	}
	return balance, nil
}

func (s *RedisStore) Charge(ctx context.Context, key string, amount int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if amount < 1 {
		return 0, ErrInvalidAmount
	}
	res, err := chargeScript.Run(ctx, s.client, []string{balanceKey(key)}, amount).Int64()
	if err != nil {
		return 0, fmt.Errorf("keystore: redis charge: %w", err)
	}
	if res < 0 {
		balance, gerr := s.Get(ctx, key)
		if gerr != nil {
			return 0, gerr
		}
		return balance, ErrOutOfCredits
	}
	return res, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	n, err := s.client.Exists(ctx, balanceKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("keystore: redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

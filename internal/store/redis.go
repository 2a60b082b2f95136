package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agendauth/agendauth/internal/config"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis client timeouts
const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
)

// RedisStore is the shared backend for multi-instance deployments. Keys are
// "<prefix><collection>:<key>" with JSON values; scans filter client-side.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
	})

	// The server may come up before redis does, retry the first ping
	exp := backoff.NewExponentialBackOff()

	_, err := backoff.Retry(ctx, func() (any, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("address", cfg.Address).Msg("Redis not reachable yet, retrying")
			return nil, err
		}
		return nil, nil
	}, backoff.WithBackOff(exp), backoff.WithMaxTries(5))

	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewRedisStoreWithClient wraps a pre-configured client, used by tests.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) recordKey(collection string, key string) string {
	return s.keyPrefix + collection + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, collection string, key string) ([]byte, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	value, err := s.client.Get(ctx, s.recordKey(collection, key)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, collection string, key string, value []byte) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	return s.client.Set(ctx, s.recordKey(collection, key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, collection string, key string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	return s.client.Del(ctx, s.recordKey(collection, key)).Err()
}

func (s *RedisStore) Scan(ctx context.Context, collection string, field string, value string) (map[string][]byte, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	prefix := s.keyPrefix + collection + ":"
	results := make(map[string][]byte)

	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		fullKey := iter.Val()

		record, err := s.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			// Deleted between scan and read
			continue
		}
		if err != nil {
			return nil, err
		}

		var fields map[string]any
		if err := json.Unmarshal(record, &fields); err != nil {
			log.Warn().Str("key", fullKey).Msg("Skipping malformed record during scan")
			continue
		}

		if fieldValue, ok := fields[field].(string); ok && fieldValue == value {
			results[fullKey[len(prefix):]] = record
		}
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := opContext(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

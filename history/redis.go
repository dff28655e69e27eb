package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when none is configured.
const DefaultRedisKey = "docmesh:history"

// RedisStore keeps JSON encoded entries in a Redis list trimmed to capacity.
type RedisStore struct {
	client   redis.UniversalClient
	key      string
	capacity int
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Key      string
	Capacity int
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{Key: DefaultRedisKey, Capacity: DefaultCapacity}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	return &RedisStore{client: client, key: opts.Key, capacity: opts.Capacity}
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(ctx context.Context, url string, optFns ...func(o *RedisOptions)) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(client, optFns...), nil
}

// Append implements Store. Push and trim run in one transaction.
func (s *RedisStore) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, len(entries))
	for i, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		values[i] = b
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.key, values...)
		p.LTrim(ctx, s.key, int64(-s.capacity), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, limit int) ([]Entry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, s.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Len implements Store.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("history length: %w", err)
	}
	return int(n), nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

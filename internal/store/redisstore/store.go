// Package redisstore keeps the current dataset in a single Redis string key.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/gyaneshwarpardhi/pacsim/internal/store"
)

var saveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "pacsim_redis_save_duration_ms",
	Help:    "Latency of dataset writes to Redis in milliseconds",
	Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
})

// DefaultKey holds the dataset unless overridden.
const DefaultKey = "pacsim:dataset:current"

// Store is a Redis-backed store.Store.
type Store struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL expires the dataset after ttl; zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connect parses url, pings the server and returns a Store.
func Connect(ctx context.Context, url string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, opts...), nil
}

// Save overwrites the key with the encoded dataset.
func (s *Store) Save(ctx context.Context, ds *store.Dataset) error {
	start := time.Now()
	defer func() {
		saveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	data, err := store.Encode(ds)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis save dataset %s: %w", ds.ID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*store.Dataset, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load dataset: %w", err)
	}
	return store.Decode(data)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis clear dataset: %w", err)
	}
	return nil
}

// UsedBytes is the length of the stored value; a missing key is zero.
func (s *Store) UsedBytes(ctx context.Context) (int64, error) {
	n, err := s.client.StrLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis dataset size: %w", err)
	}
	return n, nil
}

// Health pings the server.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

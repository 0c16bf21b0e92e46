// Package store persists the workflow data model in Redis. Entities are
// stored as JSON documents keyed by id, with secondary index sets per
// status, creator, and definition backing the monitoring queries. Instance
// and context writes are guarded by an optimistic revision check so that a
// stale writer is rejected rather than silently overwriting newer state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/kimhons/lumina-ai-sub002/internal/config"
)

// Store provides access to the workflow definition, template, instance,
// step execution, and execution context collections
type Store struct {
	client *redis.Client
	prefix string
}

var (
	// ErrNotFound is returned when no entity exists for the requested id
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write lost an optimistic concurrency
	// race and the caller should reload and retry
	ErrConflict = errors.New("stale revision")
)

// New creates a store connected to the configured Redis endpoint
func New(cfg config.RedisConfig) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.Prefix)
}

// NewWithClient creates a store around an existing Redis client
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Ping verifies connectivity to the backing Redis
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (s *Store) setJSON(ctx context.Context, key string, src any) error {
	doc, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, doc, 0).Err()
}

func (s *Store) members(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

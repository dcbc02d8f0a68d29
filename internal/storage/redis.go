package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps each run as one JSON value and indexes run ids in a
// sorted set scored by timestamp.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL expires runs after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "bulletx:run:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) indexKey() string { return s.prefix + "index" }

func (s *RedisStore) Save(ctx context.Context, run *Run) (string, error) {
	meta := run.Meta
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = newID(meta.Scene, meta.Timestamp)
	}
	meta.Columns = run.Columns
	stored := *run
	stored.Meta = meta

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("storage: marshal run: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(meta.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(meta.Timestamp.UnixNano()),
		Member: meta.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("storage: save to redis: %w", err)
	}
	run.Meta = meta
	return meta.ID, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Run, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("storage: get from redis: %w", err)
	}
	var run Run
	if err := json.Unmarshal(val, &run); err != nil {
		return nil, fmt.Errorf("storage: unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns the metadata of every live run, oldest first. Index entries
// whose value has expired are dropped.
func (s *RedisStore) List(ctx context.Context) ([]RunMetadata, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}
	runs := make([]RunMetadata, 0, len(ids))
	var stale []any
	for _, id := range ids {
		run, err := s.Load(ctx, id)
		if errors.Is(err, ErrRunNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run.Meta)
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("storage: prune expired runs: %w", err)
		}
	}
	return runs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

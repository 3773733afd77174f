// Package redis keeps the monitor state as a JSON document under one key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

const DefaultKey = "servermonitor:state"

type Store struct {
	client *redis.Client
	key    string
}

func New(ctx context.Context, redisURL, key string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Load(ctx context.Context) (domain.State, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DefaultState(), nil
	}
	if err != nil {
		return domain.DefaultState(), fmt.Errorf("get %s: %w", s.key, err)
	}
	return repo.Decode(b)
}

func (s *Store) Save(ctx context.Context, st domain.State) error {
	b, err := repo.Encode(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

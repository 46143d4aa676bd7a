package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
	}
}

// RedisStore keeps the store as one JSON blob under a single key, in the same
// format as the file store.
type RedisStore struct {
	pool *redis.Pool
	key  string
	log  *slog.Logger
}

func NewRedisStore(pool *redis.Pool, key string, log *slog.Logger) *RedisStore {
	return &RedisStore{pool: pool, key: key, log: log.With("component", "redis-store")}
}

func (s *RedisStore) Load(ctx context.Context) (domain.Store, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	b, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", s.key))
	if errors.Is(err, redis.ErrNil) {
		return domain.Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeStore(ctx, b, s.log, "redis:"+s.key), nil
}

func (s *RedisStore) Save(ctx context.Context, st domain.Store) error {
	b, err := encodeStore(st)
	if err != nil {
		return err
	}
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "SET", s.key, b); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

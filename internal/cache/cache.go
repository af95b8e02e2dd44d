// cache — опциональный кэш публичных профилей в Redis.
// Используется при аутентификации запросов, чтобы не ходить в хранилище
// за пользователем на каждый запрос. Записи инвалидируются при изменении профиля.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/videotube-accounts/internal/models"
)

// UserCache — минимальный контракт кэша профилей.
type UserCache interface {
	// Get возвращает профиль и признак его наличия в кэше.
	Get(ctx context.Context, id uuid.UUID) (*models.PublicUser, bool, error)
	// Set сохраняет профиль с TTL кэша.
	Set(ctx context.Context, u models.PublicUser) error
	// Invalidate удаляет профиль из кэша.
	Invalidate(ctx context.Context, id uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "accounts:user:"; ttl <= 0 — одна минута.
func NewRedisCache(ctx context.Context, redisURL, prefix string, ttl time.Duration) (UserCache, error) {
	const op = "cache.NewRedisCache"

	if prefix == "" {
		prefix = "accounts:user:"
	}

	if ttl <= 0 {
		ttl = time.Minute
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (c *redisCache) key(id uuid.UUID) string { return c.prefix + id.String() }

func (c *redisCache) Get(ctx context.Context, id uuid.UUID) (*models.PublicUser, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, err
	}

	var u models.PublicUser
	if err := json.Unmarshal(raw, &u); err != nil {
		// Битую запись просто выбрасываем.
		_ = c.rdb.Del(ctx, c.key(id)).Err()
		return nil, false, nil
	}

	return &u, true, nil
}

func (c *redisCache) Set(ctx context.Context, u models.PublicUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, c.key(u.ID), raw, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }

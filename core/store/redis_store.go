package store

import (
	"context"
	"errors"
	"time"

	"fusionguard/config"
	"fusionguard/core/kv"

	"github.com/redis/go-redis/v9"
)

// RedisBackend maps kv scopes onto prefixed redis keys. Browser scopes carry
// a TTL that is refreshed on every write or touch, so idle browsers expire on
// their own.
type RedisBackend struct {
	client     *redis.Client
	prefix     string
	browserTTL time.Duration
}

func NewRedisBackend(ctx context.Context, cfg config.RedisConfig, browserTTL time.Duration) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRedisBackend(client, cfg.KeyPrefix, browserTTL), nil
}

func newRedisBackend(client *redis.Client, prefix string, browserTTL time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "fusionguard:"
	}
	return &RedisBackend{client: client, prefix: prefix, browserTTL: browserTTL}
}

func (b *RedisBackend) Scope(name string) kv.Storage {
	var ttl time.Duration
	if kv.IsBrowserScope(name) {
		ttl = b.browserTTL
	}
	return &redisScope{backend: b, scope: name, ttl: ttl}
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(scope, key string) string {
	return b.prefix + scope + ":" + key
}

type redisScope struct {
	backend *RedisBackend
	scope   string
	ttl     time.Duration
}

func (s *redisScope) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.backend.client.Get(ctx, s.backend.key(s.scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *redisScope) Set(ctx context.Context, key, value string) error {
	return s.backend.client.Set(ctx, s.backend.key(s.scope, key), value, s.ttl).Err()
}

// Touch re-arms the TTL. Scopes without a TTL have nothing to refresh.
func (s *redisScope) Touch(ctx context.Context, key string) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.backend.client.Expire(ctx, s.backend.key(s.scope, key), s.ttl).Err()
}

func (s *redisScope) Remove(ctx context.Context, key string) error {
	return s.backend.client.Del(ctx, s.backend.key(s.scope, key)).Err()
}

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to addr and pings it with a short timeout. It
// returns nil when the server is unreachable so callers can fall back to
// MemoryCache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// RedisCache stores values under prefix+key and tracks tag membership in
// Redis sets so invalidation works across processes.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// New returns a RedisCache when client is non-nil and a MemoryCache otherwise.
func New(client *redis.Client, prefix string) Cache {
	if client == nil {
		return NewMemoryCache()
	}
	return NewRedisCache(client, prefix)
}

func (r *RedisCache) key(k string) string    { return r.prefix + k }
func (r *RedisCache) tagKey(t string) string { return r.prefix + "tag:" + t }
func (r *RedisCache) genKey(t string) string { return r.prefix + "gen:" + t }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(key), value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, r.tagKey(tag), r.key(key))
		if ttl > 0 {
			pipe.Expire(ctx, r.tagKey(tag), ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisCache) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, r.tagKey(tag)).Result()
	if err != nil {
		return err
	}
	keys = append(keys, r.tagKey(tag))
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.Incr(ctx, r.genKey(tag))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisCache) Generation(ctx context.Context, tag string) (uint64, error) {
	g, err := r.client.Get(ctx, r.genKey(tag)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

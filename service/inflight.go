package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

// InflightGuard keeps a code from being redeemed by two callers at once.
type InflightGuard interface {
	Acquire(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string)
}

const defaultInflightTTL = 5 * time.Minute

// MemoryInflightGuard is process local.
type MemoryInflightGuard struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryInflightGuard(ttl time.Duration) *MemoryInflightGuard {
	if ttl <= 0 {
		ttl = defaultInflightTTL
	}
	return &MemoryInflightGuard{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (g *MemoryInflightGuard) Acquire(_ context.Context, code string) (bool, error) {
	// Add fails when the key is present and unexpired
	if err := g.cache.Add(code, struct{}{}, g.ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (g *MemoryInflightGuard) Release(_ context.Context, code string) {
	g.cache.Delete(code)
}

// RedisInflightGuard shares the lock between instances.
type RedisInflightGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisInflightGuard(client *redis.Client, ttl time.Duration) *RedisInflightGuard {
	if ttl <= 0 {
		ttl = defaultInflightTTL
	}
	return &RedisInflightGuard{client: client, ttl: ttl, prefix: "cardhub:inflight:"}
}

func (g *RedisInflightGuard) Acquire(ctx context.Context, code string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+code, time.Now().Unix(), g.ttl).Result()
}

func (g *RedisInflightGuard) Release(ctx context.Context, code string) {
	g.client.Del(ctx, g.prefix+code)
}

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// MetadataCache stores token metadata, which never changes for a deployed
// token. Misses and backend failures both report ok=false.
type MetadataCache interface {
	Get(ctx context.Context, chainID int64, token common.Address) (contract.TokenInfo, bool)
	Put(ctx context.Context, chainID int64, info contract.TokenInfo)
}

type cacheKey struct {
	chainID int64
	token   common.Address
}

// MemoryCache is a process-local MetadataCache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[cacheKey]contract.TokenInfo
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[cacheKey]contract.TokenInfo)}
}

func (c *MemoryCache) Get(_ context.Context, chainID int64, token common.Address) (contract.TokenInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.items[cacheKey{chainID, token}]
	return info, ok
}

func (c *MemoryCache) Put(_ context.Context, chainID int64, info contract.TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey{chainID, info.Address}] = info
}

// RedisCache shares metadata between processes.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewRedisCache connects to url (redis://...) and pings it.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration, log *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl, log: logging.Or(log)}, nil
}

func metaKey(chainID int64, token common.Address) string {
	return fmt.Sprintf("dustvault:token:%d:%s", chainID, strings.ToLower(token.Hex()))
}

func (c *RedisCache) Get(ctx context.Context, chainID int64, token common.Address) (contract.TokenInfo, bool) {
	var info contract.TokenInfo
	raw, err := c.rdb.Get(ctx, metaKey(chainID, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return info, false
	}
	if err != nil {
		c.log.Warn("metadata cache read failed", "token", token.Hex(), "err", err)
		return info, false
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return info, false
	}
	return info, true
}

func (c *RedisCache) Put(ctx context.Context, chainID int64, info contract.TokenInfo) {
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, metaKey(chainID, info.Address), data, c.ttl).Err(); err != nil {
		c.log.Warn("metadata cache write failed", "token", info.Address.Hex(), "err", err)
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

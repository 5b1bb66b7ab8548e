package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// CacheService 缓存服务接口
// 多实例部署时使用 Redis 实现，各实例看到同一份状态；内存实现只用于开发/测试
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetNX 仅在 key 不存在时写入，返回是否写入成功
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

// RedisCache Redis 缓存实现
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 创建 Redis 缓存服务
func NewRedisCache(client *redis.Client, prefix string) CacheService {
	if prefix == "" {
		prefix = "mess-meal:"
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// getKey 获取完整的缓存键
func (c *RedisCache) getKey(key string) string {
	return c.prefix + key
}

// Get 获取缓存
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, c.getKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set 设置缓存
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.getKey(key), data, expiration).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}

// Delete 删除缓存
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.getKey(key)).Err()
}

// SetNX 原子占位
func (c *RedisCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache marshal error: %w", err)
	}

	ok, err := c.client.SetNX(ctx, c.getKey(key), data, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx error: %w", err)
	}
	return ok, nil
}

// MemoryCache 内存缓存实现（用于开发/测试）
type MemoryCache struct {
	data     map[string]*cacheItem
	capacity int
	now      func() time.Time
	mu       sync.Mutex
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache 创建内存缓存，capacity <= 0 表示不限制条目数
func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{
		data:     make(map[string]*cacheItem),
		capacity: capacity,
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.expiration) {
		return ErrCacheMiss
	}

	return json.Unmarshal(item.value, dest)
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(key, data, expiration)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

func (c *MemoryCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache marshal error: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.data[key]; exists && !c.now().After(item.expiration) {
		return false, nil
	}
	c.put(key, data, expiration)
	return true, nil
}

// Len 当前条目数 (含未清理的过期项)
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// put 调用方需持有锁
func (c *MemoryCache) put(key string, data []byte, expiration time.Duration) {
	if _, exists := c.data[key]; !exists && c.capacity > 0 && len(c.data) >= c.capacity {
		c.cleanup()
		if len(c.data) >= c.capacity {
			c.evictSoonest()
		}
	}
	c.data[key] = &cacheItem{
		value:      data,
		expiration: c.now().Add(expiration),
	}
}

// cleanup 清理过期项
func (c *MemoryCache) cleanup() {
	now := c.now()
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
		}
	}
}

// evictSoonest 满了以后淘汰最早过期的一项
func (c *MemoryCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for key, item := range c.data {
		if victim == "" || item.expiration.Before(soonest) {
			victim, soonest = key, item.expiration
		}
	}
	delete(c.data, victim)
}

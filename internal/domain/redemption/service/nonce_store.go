package service

import (
	"context"
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/cache"
)

// NonceStore 深链 nonce 只能使用一次
type NonceStore interface {
	// Claim 首次使用返回 true
	Claim(ctx context.Context, tenantID, nonce string, expiresAt time.Time) (bool, error)
	// Release 核销未落库时归还，链接可以重试
	Release(ctx context.Context, tenantID, nonce string) error
}

// 离线回放按客户端时间判断过期，已用 nonce 至少保留一天，防止补传旧链接重复核销
const minNonceRetention = 24 * time.Hour

type cacheNonceStore struct {
	cache cache.CacheService
	now   func() time.Time
}

// NewNonceStore 基于共享缓存的 SETNX，多实例看到同一份已用集合
func NewNonceStore(c cache.CacheService) NonceStore {
	return &cacheNonceStore{cache: c, now: time.Now}
}

func (s *cacheNonceStore) Claim(ctx context.Context, tenantID, nonce string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl < minNonceRetention {
		ttl = minNonceRetention
	}
	return s.cache.SetNX(ctx, nonceKey(tenantID, nonce), 1, ttl)
}

func (s *cacheNonceStore) Release(ctx context.Context, tenantID, nonce string) error {
	return s.cache.Delete(ctx, nonceKey(tenantID, nonce))
}

func nonceKey(tenantID, nonce string) string {
	return "nonce:" + tenantID + ":" + nonce
}

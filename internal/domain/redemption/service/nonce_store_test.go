package service

import (
	"context"
	"testing"
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStoreClaimsOnce(t *testing.T) {
	store := NewNonceStore(cache.NewMemoryCache(0))
	exp := time.Now().Add(time.Minute)

	ok, err := store.Claim(context.Background(), "t1", "n1", exp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(context.Background(), "t1", "n1", exp)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Claim(context.Background(), "t2", "n1", exp)
	require.NoError(t, err)
	assert.True(t, ok, "nonces are scoped per tenant")
}

func TestNonceStoreReleaseAllowsReclaim(t *testing.T) {
	store := NewNonceStore(cache.NewMemoryCache(0))
	exp := time.Now().Add(time.Minute)

	ok, err := store.Claim(context.Background(), "t1", "n1", exp)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(context.Background(), "t1", "n1"))
	ok, err = store.Claim(context.Background(), "t1", "n1", exp)
	require.NoError(t, err)
	assert.True(t, ok)

	// 归还不存在的 nonce 不报错
	assert.NoError(t, store.Release(context.Background(), "t1", "missing"))
}

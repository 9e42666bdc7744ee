package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVSetGetDel(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, kv.Del(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKVTTL(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKVScan(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "user:status:1", "NORMAL", 0))
	require.NoError(t, kv.Set(ctx, "user:status:2", "BANNED", 0))
	require.NoError(t, kv.Set(ctx, "socket:user:1", "conn1", 0))

	keys, err := kv.Scan(ctx, "user:status:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:status:1", "user:status:2"}, keys)

	keys, err = kv.Scan(ctx, "socket:user:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"socket:user:1"}, keys)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("prefix:*", "prefix:1"))
	assert.True(t, matchPattern("prefix:*", "prefix:"))
	assert.False(t, matchPattern("prefix:*", "other:1"))
	assert.True(t, matchPattern("exact", "exact"))
	assert.False(t, matchPattern("exact", "exact2"))
}

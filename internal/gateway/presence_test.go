package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linxi/internal/infrastructure/cache"
)

func TestPresenceBindLookup(t *testing.T) {
	p := NewPresence(cache.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, p.Bind(ctx, 1, "conn1"))

	connID, err := p.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "conn1", connID)

	_, err = p.Lookup(ctx, 2)
	assert.ErrorIs(t, err, ErrNotOnline)
}

func TestPresenceUnbindStaleConnKeepsNewBinding(t *testing.T) {
	p := NewPresence(cache.NewMemoryKV())
	ctx := context.Background()

	// 快速重连：新连接先登记，旧连接的注销后到
	require.NoError(t, p.Bind(ctx, 1, "conn1"))
	require.NoError(t, p.Bind(ctx, 1, "conn2"))
	require.NoError(t, p.Unbind(ctx, 1, "conn1"))

	connID, err := p.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "conn2", connID)
}

func TestPresenceUnbind(t *testing.T) {
	p := NewPresence(cache.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, p.Bind(ctx, 1, "conn1"))
	require.NoError(t, p.Unbind(ctx, 1, "conn1"))

	_, err := p.Lookup(ctx, 1)
	assert.ErrorIs(t, err, ErrNotOnline)

	// 没有登记时注销是幂等的
	require.NoError(t, p.Unbind(ctx, 1, "conn1"))
}

func TestPresenceEntries(t *testing.T) {
	p := NewPresence(cache.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, p.Bind(ctx, 1, "conn1"))
	require.NoError(t, p.Bind(ctx, 2, "conn2"))

	entries, err := p.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "conn1", 2: "conn2"}, entries)
}

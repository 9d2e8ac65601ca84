package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*RedisMemberCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), mr.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestAddAndContains(t *testing.T) {
	c, _ := setupCache(t, 0)
	ctx := context.Background()

	known, err := c.Contains(ctx, -1, 12345)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, c.Add(ctx, -1, 12345))

	known, err = c.Contains(ctx, -1, 12345)
	require.NoError(t, err)
	assert.True(t, known)

	// Other chats are unaffected.
	known, err = c.Contains(ctx, -2, 12345)
	require.NoError(t, err)
	assert.False(t, known)
}

func TestInvalidateGroup(t *testing.T) {
	c, _ := setupCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, -1, 1))
	require.NoError(t, c.Add(ctx, -1, 2))

	require.NoError(t, c.InvalidateGroup(ctx, -1))

	known, err := c.Contains(ctx, -1, 1)
	require.NoError(t, err)
	assert.False(t, known)
}

func TestTTLExpiry(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, -1, 12345))

	mr.FastForward(2 * time.Minute)

	known, err := c.Contains(ctx, -1, 12345)
	require.NoError(t, err)
	assert.False(t, known, "expired set behaves like a miss")
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), "127.0.0.1:1", "", 0, 0)
	require.Error(t, err)
}

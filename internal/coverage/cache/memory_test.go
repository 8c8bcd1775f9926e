package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign/internal/coverage/models"
)

func TestInMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC)
	c := NewInMemory(10 * time.Second)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "stats:x", &models.Stats{TotalTablesExpected: 4, Percentage: 39}))

	var got models.Stats
	hit, err := c.Get(ctx, "stats:x", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 4, got.TotalTablesExpected)
	assert.Equal(t, 39, got.Percentage)

	now = now.Add(10 * time.Second)
	hit, err = c.Get(ctx, "stats:x", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInMemoryMiss(t *testing.T) {
	var got models.Stats
	hit, err := NewInMemory(time.Minute).Get(context.Background(), "nope", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory(time.Minute)
	require.NoError(t, c.Set(ctx, "0:stats:x", &models.Stats{TotalTablesReported: 1}))

	require.NoError(t, c.Invalidate(ctx))

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	var got models.Stats
	hit, err := c.Get(ctx, "0:stats:x", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, c.Len())
}

func TestInMemorySetSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC)
	c := NewInMemory(10 * time.Second)
	c.now = func() time.Time { return now }

	for _, key := range []string{"stats:a", "stats:b", "stats:c"} {
		require.NoError(t, c.Set(ctx, key, &models.Stats{}))
	}
	require.Equal(t, 3, c.Len())

	now = now.Add(11 * time.Second)
	require.NoError(t, c.Set(ctx, "stats:d", &models.Stats{}))

	assert.Equal(t, 1, c.Len())
}

//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign/internal/coverage/models"
	"campaign/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	c := NewRedis(rc.Client, time.Second)

	var got models.PriorityReport
	hit, err := c.Get(ctx, "priority:x", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "priority:x", &models.PriorityReport{TotalVoters: 9, UncoveredTables: 3}))
	hit, err = c.Get(ctx, "priority:x", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 9, got.TotalVoters)

	ttl, err := rc.Client.TTL(ctx, keyPrefix+"priority:x").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.Eventually(t, func() bool {
		hit, err := c.Get(ctx, "priority:x", &got)
		return err == nil && !hit
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisGeneration(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	c := NewRedis(rc.Client, time.Minute)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

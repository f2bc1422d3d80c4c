package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/internal/platform/config"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("empty url disables redis", func(t *testing.T) {
		c, err := New(ctx, config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("connects and reports health", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := New(ctx, config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 2, DialTimeout: time.Second})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		assert.NoError(t, c.Health(ctx))
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := New(ctx, config.RedisConfig{URL: "redis://" + addr, DialTimeout: 100 * time.Millisecond})
		assert.Error(t, err)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := New(ctx, config.RedisConfig{URL: "::not a url"})
		assert.Error(t, err)
	})
}

func TestNewKeepsURLSettingsForZeroConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr() + "/3?pool_size=7", MinIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	opts := c.Options()
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 1, opts.MinIdleConns)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, "custodian", opts.ClientName)
}

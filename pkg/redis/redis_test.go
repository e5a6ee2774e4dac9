package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptions(t *testing.T) {
	cfg := Config{URL: "redis://:secret@cache.internal:6380/2", ReadTimeout: 1, WriteTimeout: 2, DialTimeout: 4, PoolSize: 7}
	opts, err := cfg.Options()
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, "sagely", opts.ClientName)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)
	assert.Equal(t, 2*time.Second, opts.WriteTimeout)
	assert.Equal(t, 4*time.Second, opts.DialTimeout)
}

func TestConfigOptionsInvalidURL(t *testing.T) {
	cfg := Config{URL: "http://not-redis"}
	_, err := cfg.Options()
	assert.Error(t, err)
}

func TestNewInvalidURL(t *testing.T) {
	cfg := Config{URL: "http://not-redis"}
	_, err := cfg.New(context.Background())
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{URL: "redis://127.0.0.1:1/0", DialTimeout: 1, ReadTimeout: 1}
	_, err := cfg.New(ctx)
	assert.ErrorContains(t, err, "ping redis at 127.0.0.1:1")
}

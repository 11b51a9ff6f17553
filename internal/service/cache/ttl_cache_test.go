package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFillFillsOnce(t *testing.T) {
	c := NewTTLCache()
	calls := 0
	fill := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	for i := 0; i < 3; i++ {
		b, err := c.GetOrFill(context.Background(), "k", time.Minute, fill)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), b)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrFillErrorNotCached(t *testing.T) {
	c := NewTTLCache()
	calls := 0
	fill := func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("upstream down")
		}
		return []byte("ok"), nil
	}

	_, err := c.GetOrFill(context.Background(), "k", time.Minute, fill)
	assert.Error(t, err)

	b, err := c.GetOrFill(context.Background(), "k", time.Minute, fill)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), b)
	assert.Equal(t, 2, calls)
}

func TestGetOrFillExpiry(t *testing.T) {
	c := NewTTLCache()
	calls := 0
	fill := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	_, err := c.GetOrFill(context.Background(), "k", 10*time.Millisecond, fill)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = c.GetOrFill(context.Background(), "k", 10*time.Millisecond, fill)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry must refill")
}

func TestKeysIsolated(t *testing.T) {
	c := NewTTLCache()
	a, err := c.GetOrFill(context.Background(), "a", time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte("a"), nil
	})
	require.NoError(t, err)
	b, err := c.GetOrFill(context.Background(), "b", time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte("b"), nil
	})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	t.Run("miss_on_empty", func(t *testing.T) {
		_, ok, err := m.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("roundtrip", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "k", []byte("value"), time.Minute))
		got, ok, err := m.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("value"), got)
	})

	t.Run("zero_ttl_is_not_stored", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "zero", []byte("v"), 0))
		_, ok, err := m.Get(ctx, "zero")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("value_is_copied", func(t *testing.T) {
		src := []byte("original")
		require.NoError(t, m.Set(ctx, "copy", src, time.Minute))
		src[0] = 'X'
		got, ok, _ := m.Get(ctx, "copy")
		require.True(t, ok)
		assert.Equal(t, []byte("original"), got)
	})
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := m.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "期限切れエントリは返されない")
}

func TestMemorySweep(t *testing.T) {
	m := NewMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("v"), 5*time.Millisecond))
	require.NoError(t, m.Set(ctx, "b", []byte("v"), time.Hour))
	time.Sleep(20 * time.Millisecond)
	m.sweep()

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.NotContains(t, m.entries, "a")
	assert.Contains(t, m.entries, "b")
}

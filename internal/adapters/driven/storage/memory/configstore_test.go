package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("sanitizer.max_chars", 1800))
	require.NoError(t, store.Set("sanitizer.max_chars", 1200))

	val, ok := store.Get("sanitizer.max_chars")
	assert.True(t, ok)
	assert.Equal(t, 1200, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Apply(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("embedding.api_key", "sk-old"))

	require.NoError(t, store.Apply(map[string]any{
		"retrieval.teacher.k": 4,
		"index.metric":        "l2",
	}, "embedding.api_key", "never.set"))

	assert.Equal(t, []string{"index.metric", "retrieval.teacher.k"}, store.Keys())
	_, ok := store.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			assert.NoError(t, store.Set(key, n))
			_, _ = store.Get(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 20)
}

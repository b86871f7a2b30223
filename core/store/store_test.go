package store_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjuct/mini-redis-http/core/store"
)

func TestMemoryStore_SetGet(t *testing.T) {
	t.Parallel()

	t.Run("last write wins", func(t *testing.T) {
		s := store.NewMemoryStore()
		s.Set("k", "v1")
		s.Set("k", "v2")

		value, ok := s.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v2", value)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("missing key is absent", func(t *testing.T) {
		s := store.NewMemoryStore()

		value, ok := s.Get("missing")
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("empty value is distinct from absent", func(t *testing.T) {
		s := store.NewMemoryStore()
		s.Set("empty", "")

		value, ok := s.Get("empty")
		assert.True(t, ok)
		assert.Empty(t, value)
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	t.Run("no keys", func(t *testing.T) {
		s := store.NewMemoryStore()
		s.Set("a", "1")

		assert.Equal(t, 0, s.Delete())
		assert.Equal(t, 1, s.Len())
	})

	t.Run("missing key", func(t *testing.T) {
		s := store.NewMemoryStore()
		assert.Equal(t, 0, s.Delete("missing"))
	})

	t.Run("counts only present keys", func(t *testing.T) {
		s := store.NewMemoryStore()
		s.Set("a", "1")
		s.Set("b", "2")
		s.Set("c", "3")

		assert.Equal(t, 2, s.Delete("a", "c", "zzz"))

		_, ok := s.Get("a")
		assert.False(t, ok)
		_, ok = s.Get("c")
		assert.False(t, ok)
		value, ok := s.Get("b")
		assert.True(t, ok)
		assert.Equal(t, "2", value)
	})

	t.Run("duplicates counted once", func(t *testing.T) {
		s := store.NewMemoryStore()
		s.Set("a", "1")
		assert.Equal(t, 1, s.Delete("a", "a"))
	})

	t.Run("idempotent", func(t *testing.T) {
		s := store.NewMemoryStore()
		s.Set("a", "1")
		assert.Equal(t, 1, s.Delete("a"))
		assert.Equal(t, 0, s.Delete("a"))
	})
}

func TestMemoryStore_KeysAndStats(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	s.Set("b", "2")
	s.Set("a", "1")
	s.Get("a")
	s.Get("missing")
	s.Delete("b")

	assert.Equal(t, []string{"a"}, s.Keys())
	assert.Equal(t, store.Stats{
		Keys:    1,
		Sets:    2,
		Hits:    1,
		Misses:  1,
		Removed: 1,
	}, s.Stats())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping race condition test in short mode")
	}
	t.Parallel()

	s := store.NewMemoryStore()

	const writers = 50
	const readers = 50
	const perWriter = 100

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				s.Set(fmt.Sprintf("key-%d-%d", w, i), fmt.Sprintf("value-%d-%d", w, i))
			}
		}()
	}
	for r := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				if value, ok := s.Get(fmt.Sprintf("key-%d-%d", r, i)); ok {
					assert.Equal(t, fmt.Sprintf("value-%d-%d", r, i), value)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, s.Len())
	for w := range writers {
		for i := range perWriter {
			value, ok := s.Get(fmt.Sprintf("key-%d-%d", w, i))
			require.True(t, ok)
			assert.Equal(t, fmt.Sprintf("value-%d-%d", w, i), value)
		}
	}
}

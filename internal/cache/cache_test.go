package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](0)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now the oldest
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestGetOrCreateOnce(t *testing.T) {
	c := New[int, string](0)
	calls := 0
	create := func() string { calls++; return "x" }
	assert.Equal(t, "x", c.GetOrCreate(1, create))
	assert.Equal(t, "x", c.GetOrCreate(1, create))
	assert.Equal(t, 1, calls)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 1e-12)
}

func TestDeleteClearRange(t *testing.T) {
	c := New[int, int](0)
	for i := 0; i < 4; i++ {
		c.Set(i, i*i)
	}
	assert.True(t, c.Delete(2))
	assert.False(t, c.Delete(2))

	var keys []int
	c.Range(func(k, _ int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []int{3, 1, 0}, keys)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string, int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := fmt.Sprintf("k%d", (g*31+i)%100)
				c.GetOrCreate(k, func() int { return i })
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}

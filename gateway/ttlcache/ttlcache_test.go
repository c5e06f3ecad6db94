package ttlcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(capacity int) (*Cache, *time.Time) {
	c := New(capacity)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestPutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(10)

	c.Put("k", []byte("value"), time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache(10)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c, now := newTestCache(10)

	c.Put("k", []byte("v"), time.Minute)

	*now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	require.True(t, ok, "entry should be live just before TTL")

	*now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be absent after TTL")
}

func TestPutOverwritesWholesale(t *testing.T) {
	c, _ := newTestCache(10)

	c.Put("k", []byte("old"), time.Minute)
	c.Put("k", []byte("new"), time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, c.Len())
}

func TestNonPositiveTTLStoresNothing(t *testing.T) {
	c, _ := newTestCache(10)

	c.Put("k", []byte("v"), 0)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	c, _ := newTestCache(3)

	c.Put("a", []byte("1"), time.Minute)
	c.Put("b", []byte("2"), time.Minute)
	c.Put("c", []byte("3"), time.Minute)

	// Touch "a" so "b" becomes the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", []byte("4"), time.Minute)

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %q should survive eviction", key)
	}
}

func TestExpiredEntriesReclaimedBeforeEviction(t *testing.T) {
	c, now := newTestCache(2)

	c.Put("old", []byte("1"), time.Second)
	c.Put("live", []byte("2"), time.Hour)

	*now = now.Add(time.Minute)
	c.Put("new", []byte("3"), time.Hour)

	_, ok := c.Get("live")
	assert.True(t, ok, "live entry should not be evicted while an expired one exists")
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache(10)

	c.Put("a", []byte("1"), time.Minute)
	c.Put("b", []byte("2"), time.Minute)

	c.InvalidateAll()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(10)

	c.Put("a", []byte("1"), time.Minute)
	c.Delete("a")
	c.Delete("never-existed")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestDefaultCapacity(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.capacity)
}

func TestConcurrentAccessDifferentKeys(t *testing.T) {
	c := New(DefaultCapacity)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			for j := 0; j < 100; j++ {
				c.Put(key, []byte{byte(j)}, time.Minute)
				got, ok := c.Get(key)
				if ok && len(got) != 1 {
					t.Errorf("key %s: got %d bytes", key, len(got))
					return
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, c.Len())
}

package live

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthasutra/backend/pkg/logger"
)

func TestCache_UpsertOverwrites(t *testing.T) {
	c := NewCache(logger.Nop())

	c.Upsert(1, 100.5, "yf")
	q := c.Get(1)
	require.NotNil(t, q)
	assert.Equal(t, 100.5, q.Price)
	assert.Equal(t, "yf", q.Source)

	c.Upsert(1, 101.0, "kite")
	q = c.Get(1)
	require.NotNil(t, q)
	assert.Equal(t, 101.0, q.Price)
	assert.Equal(t, "kite", q.Source)
	assert.Equal(t, 1, c.Len())
}

func TestCache_GetUnknownSecurity(t *testing.T) {
	c := NewCache(logger.Nop())

	assert.Nil(t, c.Get(42))
	assert.Nil(t, c.FreshPrice(42, DefaultFreshness))
}

func TestCache_FreshnessWindow(t *testing.T) {
	c := NewCache(logger.Nop())

	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Upsert(7, 2845.0, "yf")

	// 119s old: fresh
	c.now = func() time.Time { return base.Add(119 * time.Second) }
	require.NotNil(t, c.FreshPrice(7, 120*time.Second))

	// exactly 120s old: still fresh (boundary is inclusive)
	c.now = func() time.Time { return base.Add(120 * time.Second) }
	require.NotNil(t, c.FreshPrice(7, 120*time.Second))

	// 121s old: stale
	c.now = func() time.Time { return base.Add(121 * time.Second) }
	assert.Nil(t, c.FreshPrice(7, 120*time.Second))

	// stale quotes remain available as snapshots
	q := c.Get(7)
	require.NotNil(t, q)
	assert.Equal(t, 2845.0, q.Price)
}

func TestCache_ConcurrentUpserts(t *testing.T) {
	c := NewCache(logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Upsert(int64(n%5), float64(n), "kite")
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = c.Get(int64(n % 5))
		}(i)
	}
	wg.Wait()

	// Each of the five rows holds some complete write.
	for id := int64(0); id < 5; id++ {
		q := c.Get(id)
		require.NotNil(t, q)
		assert.Equal(t, "kite", q.Source)
		assert.False(t, q.ObservedAt.IsZero())
	}
}

func TestCache_Stats(t *testing.T) {
	c := NewCache(logger.Nop())

	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Upsert(1, 100, "kite")
	c.Upsert(2, 200, "yf")

	c.now = func() time.Time { return base.Add(200 * time.Second) }
	c.Upsert(3, 300, "yf")

	stats := c.Stats(120 * time.Second)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 1, stats.FreshCount)
	assert.Equal(t, 2, stats.StaleCount)
	assert.Equal(t, 2, stats.BySource["yf"])
	assert.Equal(t, 1, stats.BySource["kite"])
}

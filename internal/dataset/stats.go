package dataset

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/divyagonja/phoenixing/api/schemas"
)

// BucketCounter is the slice of the record store the statistics cache needs.
type BucketCounter interface {
	CountBucket(ctx context.Context, bucket schemas.RiskBucket) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

// StatsCache holds the per-bucket record counts behind a TTL. Counting
// queries against the full dataset are expensive, so readers get the cached
// value until it ages out; concurrent expiry collapses to a single in-flight
// refresh whose result every waiter shares. Readers always observe either the
// previous complete value or the new complete value, never a mix.
type StatsCache struct {
	counter BucketCounter
	ttl     time.Duration
	log     *zap.Logger
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	stats     schemas.RiskStats
	fetchedAt time.Time // zero means never refreshed
}

// NewStatsCache creates a statistics cache over the given counter.
func NewStatsCache(counter BucketCounter, ttl time.Duration, logger *zap.Logger) *StatsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{
		counter: counter,
		ttl:     ttl,
		log:     logger.Named("stats"),
		now:     time.Now,
	}
}

// Get returns the current risk statistics, refreshing them from the store if
// the cached value has aged out. A failed bucket count degrades that bucket
// to zero instead of failing the whole refresh.
func (c *StatsCache) Get(ctx context.Context) schemas.RiskStats {
	if stats, ok := c.cached(); ok {
		return stats
	}

	v, _, _ := c.group.Do("stats", func() (any, error) {
		// A waiter that lost the race may land here after the winner has
		// already stored a fresh value; don't refresh twice.
		if stats, ok := c.cached(); ok {
			return stats, nil
		}
		return c.refresh(ctx), nil
	})
	return v.(schemas.RiskStats)
}

// cached returns the stats and true when the cached value is still fresh.
func (c *StatsCache) cached() (schemas.RiskStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.ttl {
		return schemas.RiskStats{}, false
	}
	return c.stats, true
}

// refresh runs the four counting queries and atomically replaces the cached
// value and timestamp.
func (c *StatsCache) refresh(ctx context.Context) schemas.RiskStats {
	c.log.Debug("Refreshing risk statistics from the record store")

	next := schemas.RiskStats{RefreshedAt: c.now().UTC()}

	// The four counts are independent; fetch them in parallel and degrade
	// each failure to a zero count.
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fetch func(context.Context) (int64, error), name string) {
		g.Go(func() error {
			n, err := fetch(gctx)
			if err != nil {
				c.log.Warn("Bucket count failed", zap.String("bucket", name), zap.Error(err))
				n = 0
			}
			*dst = n
			return nil
		})
	}
	count(&next.High, func(ctx context.Context) (int64, error) {
		return c.counter.CountBucket(ctx, schemas.BucketHigh)
	}, "high")
	count(&next.Medium, func(ctx context.Context) (int64, error) {
		return c.counter.CountBucket(ctx, schemas.BucketMedium)
	}, "medium")
	count(&next.Low, func(ctx context.Context) (int64, error) {
		return c.counter.CountBucket(ctx, schemas.BucketLow)
	}, "low")
	count(&next.All, c.counter.CountAll, "all")
	g.Wait() //nolint:errcheck // counts degrade to zero, never error

	c.mu.Lock()
	c.stats = next
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return next
}

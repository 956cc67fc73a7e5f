package reportcache

import (
	"context"
	"time"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/stats"
	"github.com/wonny/overnight/pkg/redis"
)

const (
	keyCurrentBatch = "current_batch"
	keyStats        = "stats"

	// Entries outlive a weekend plus a holiday; the ledger remains the source
	// of truth on expiry.
	ttl = 96 * time.Hour
)

// Cache publishes the current batch and the latest statistics report to
// Redis after each AGGREGATING stage, so dashboard reads never touch the
// ledger on the hot path. It implements orchestrator.ReportSink.
type Cache struct {
	cache *redis.Cache
}

// New creates a report cache.
func New(client *redis.Client) *Cache {
	return &Cache{cache: redis.NewCache(client, "overnight")}
}

// Publish stores the refreshed batch and report.
func (c *Cache) Publish(ctx context.Context, batch []contracts.Signal, report *stats.Report) error {
	if err := c.cache.Set(ctx, keyCurrentBatch, batch, ttl); err != nil {
		return err
	}
	return c.cache.Set(ctx, keyStats, report, ttl)
}

// CurrentBatch returns the cached batch, or found=false on a miss.
func (c *Cache) CurrentBatch(ctx context.Context) ([]contracts.Signal, bool, error) {
	var batch []contracts.Signal
	found, err := c.cache.Get(ctx, keyCurrentBatch, &batch)
	return batch, found, err
}

// Stats returns the cached report, or found=false on a miss.
func (c *Cache) Stats(ctx context.Context) (*stats.Report, bool, error) {
	var report stats.Report
	found, err := c.cache.Get(ctx, keyStats, &report)
	if !found || err != nil {
		return nil, found, err
	}
	return &report, true, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RowCache keeps each entity's listed rows in Redis until the next write.
// Cache failures are logged and treated as misses; they never fail a request.
type RowCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewRowCache constructs a row cache. A nil repo or enabled=false disables it.
func NewRowCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *RowCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *RowCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

func rowCacheKey(entity registry.Entity) string {
	return "rows:" + entity.Locator.String()
}

// Rows returns the cached rows of entity and whether the cache was hit.
func (c *RowCache) Rows(ctx context.Context, entity registry.Entity) ([]models.Row, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	var rows []models.Row
	err := c.repo.Get(ctx, rowCacheKey(entity), &rows)
	c.metrics.RecordCacheLookup(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("row cache get failed", zap.String("entity", entity.Name), zap.Error(err))
		}
		return nil, false
	}
	return rows, true
}

// Store caches rows for entity.
func (c *RowCache) Store(ctx context.Context, entity registry.Entity, rows []models.Row) {
	if !c.Enabled() {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, rowCacheKey(entity), rows, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("row cache set failed", zap.String("entity", entity.Name), zap.Error(err))
	}
}

// Invalidate drops the cached rows for entity.
func (c *RowCache) Invalidate(ctx context.Context, entity registry.Entity) {
	if !c.Enabled() {
		return
	}
	if err := c.repo.Delete(ctx, rowCacheKey(entity)); err != nil {
		c.logger.Warn("row cache invalidate failed", zap.String("entity", entity.Name), zap.Error(err))
	}
}

package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/port"
)

// CachedRepository serves beer reads from the cache and drops cached beers on
// every write. Cache failures are logged and never fail the request.
//
// A read that raced with a write does not fill the cache: every invalidation
// bumps a per-beer generation, and the fill is skipped when the generation
// moved while the store was being read.
type CachedRepository struct {
	port.DatabaseRepository
	cache port.CacheRepository
	log   *zap.Logger

	mu          sync.Mutex
	generations map[int64]uint64
}

func NewCachedRepository(db port.DatabaseRepository, cache port.CacheRepository, log *zap.Logger) *CachedRepository {
	return &CachedRepository{
		DatabaseRepository: db,
		cache:              cache,
		log:                log,
		generations:        make(map[int64]uint64),
	}
}

func (c *CachedRepository) GetBeer(ctx context.Context, id int64) (*domain.Beer, error) {
	cached, err := c.cache.GetBeer(ctx, id)
	if err != nil {
		c.log.Warn("beer cache read failed", zap.Int64("beer_id", id), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	c.mu.Lock()
	gen := c.generations[id]
	c.mu.Unlock()

	beer, err := c.DatabaseRepository.GetBeer(ctx, id)
	if err != nil || beer == nil {
		return beer, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[id] != gen {
		c.log.Debug("beer changed during read, skipping cache fill", zap.Int64("beer_id", id))
		return beer, nil
	}
	if err := c.cache.SetBeer(ctx, *beer); err != nil {
		c.log.Warn("beer cache write failed", zap.Int64("beer_id", id), zap.Error(err))
	}
	return beer, nil
}

func (c *CachedRepository) UpdateBeer(ctx context.Context, beer *domain.Beer) error {
	err := c.DatabaseRepository.UpdateBeer(ctx, beer)
	c.invalidate(ctx, beer.ID)
	return err
}

func (c *CachedRepository) DeleteBeer(ctx context.Context, id int64) (bool, error) {
	deleted, err := c.DatabaseRepository.DeleteBeer(ctx, id)
	c.invalidate(ctx, id)
	return deleted, err
}

func (c *CachedRepository) invalidate(ctx context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[id]++
	if err := c.cache.InvalidateBeer(ctx, id); err != nil {
		c.log.Warn("beer cache invalidation failed", zap.Int64("beer_id", id), zap.Error(err))
	}
}

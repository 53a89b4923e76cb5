package port

import (
	"context"

	"github.com/rl1809/beer-orders/internal/core/domain"
)

type CacheRepository interface {
	// GetBeer returns nil, nil on a cache miss
	GetBeer(ctx context.Context, id int64) (*domain.Beer, error)

	SetBeer(ctx context.Context, beer domain.Beer) error

	// InvalidateBeer drops a cached beer after it changed or was deleted
	InvalidateBeer(ctx context.Context, id int64) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request failed so it can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}

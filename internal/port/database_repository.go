package port

import (
	"context"

	"github.com/rl1809/beer-orders/internal/core/domain"
)

type BeerRepository interface {
	// CreateBeer inserts the beer and writes back its id, version and timestamps
	CreateBeer(ctx context.Context, beer *domain.Beer) error

	// GetBeer returns nil, nil when the beer does not exist
	GetBeer(ctx context.Context, id int64) (*domain.Beer, error)

	ListBeers(ctx context.Context) ([]domain.Beer, error)

	// UpdateBeer saves the beer if its version is still current, otherwise ErrOptimisticLock
	UpdateBeer(ctx context.Context, beer *domain.Beer) error

	// DeleteBeer reports whether a row was removed; ErrBeerInUse if order lines reference it
	DeleteBeer(ctx context.Context, id int64) (bool, error)
}

type OrderRepository interface {
	// CreateOrder inserts the order and all of its lines in one transaction
	CreateOrder(ctx context.Context, order *domain.BeerOrder) error

	// GetOrder returns the order with its lines, or nil, nil when it does not exist
	GetOrder(ctx context.Context, id int64) (*domain.BeerOrder, error)

	// ListOrders returns one page of orders ordered by id and the total order count
	ListOrders(ctx context.Context, page, size int) ([]domain.BeerOrder, int64, error)

	// SaveOrder persists the aggregate in one transaction: the header is version
	// checked, lines missing from order.Lines are deleted, changed lines are
	// version checked and updated, lines with a zero id are inserted
	SaveOrder(ctx context.Context, order *domain.BeerOrder) error

	// DeleteOrder removes the order and its lines
	DeleteOrder(ctx context.Context, id int64) (bool, error)
}

type DatabaseRepository interface {
	BeerRepository
	OrderRepository
}

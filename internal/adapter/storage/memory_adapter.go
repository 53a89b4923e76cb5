package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/port"
)

// MemoryAdapter is an in-process DatabaseRepository. It enforces the same
// version checks and reference rules as the MySQL schema.
type MemoryAdapter struct {
	mu      sync.Mutex
	beers   map[int64]domain.Beer
	orders  map[int64]domain.BeerOrder
	beerSeq int64
	ordSeq  int64
	lineSeq int64
	nowFunc func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		beers:   make(map[int64]domain.Beer),
		orders:  make(map[int64]domain.BeerOrder),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryAdapter) Ping(context.Context) error { return nil }

func (m *MemoryAdapter) CreateBeer(_ context.Context, beer *domain.Beer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	m.beerSeq++
	beer.ID = m.beerSeq
	beer.Version = 0
	beer.CreatedDate = now
	beer.UpdateDate = now
	m.beers[beer.ID] = *beer
	return nil
}

func (m *MemoryAdapter) GetBeer(_ context.Context, id int64) (*domain.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.beers[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MemoryAdapter) ListBeers(context.Context) ([]domain.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	beers := make([]domain.Beer, 0, len(m.beers))
	for _, b := range m.beers {
		beers = append(beers, b)
	}
	sort.Slice(beers, func(i, j int) bool { return beers[i].ID < beers[j].ID })
	return beers, nil
}

func (m *MemoryAdapter) UpdateBeer(_ context.Context, beer *domain.Beer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.beers[beer.ID]
	if !ok || current.Version != beer.Version {
		return port.ErrOptimisticLock
	}

	beer.Version++
	beer.CreatedDate = current.CreatedDate
	beer.UpdateDate = m.nowFunc()
	m.beers[beer.ID] = *beer
	return nil
}

func (m *MemoryAdapter) DeleteBeer(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.beers[id]; !ok {
		return false, nil
	}
	for _, o := range m.orders {
		for _, l := range o.Lines {
			if l.BeerID == id {
				return false, fmt.Errorf("delete beer %d: %w", id, port.ErrBeerInUse)
			}
		}
	}
	delete(m.beers, id)
	return true, nil
}

func (m *MemoryAdapter) CreateOrder(_ context.Context, order *domain.BeerOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReferences(order.Lines); err != nil {
		return err
	}

	now := m.nowFunc()
	saved := order.Clone()
	m.ordSeq++
	saved.ID = m.ordSeq
	saved.Version = 0
	saved.CreatedDate = now
	saved.UpdateDate = now
	for i := range saved.Lines {
		m.newLine(&saved.Lines[i], now)
	}

	m.orders[saved.ID] = saved
	*order = saved.Clone()
	return nil
}

func (m *MemoryAdapter) GetOrder(_ context.Context, id int64) (*domain.BeerOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	c := o.Clone()
	return &c, nil
}

func (m *MemoryAdapter) ListOrders(_ context.Context, page, size int) ([]domain.BeerOrder, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	orders := []domain.BeerOrder{}
	if page > len(ids)/size {
		return orders, int64(len(ids)), nil
	}
	start := page * size
	for i := start; i < len(ids) && i < start+size; i++ {
		orders = append(orders, m.orders[ids[i]].Clone())
	}
	return orders, int64(len(ids)), nil
}

func (m *MemoryAdapter) SaveOrder(_ context.Context, order *domain.BeerOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.orders[order.ID]
	if !ok || current.Version != order.Version {
		return port.ErrOptimisticLock
	}
	if err := m.checkReferences(order.Lines); err != nil {
		return err
	}

	storedByID := make(map[int64]domain.BeerOrderLine, len(current.Lines))
	for _, l := range current.Lines {
		storedByID[l.ID] = l
	}

	now := m.nowFunc()
	saved := order.Clone()
	for i := range saved.Lines {
		l := &saved.Lines[i]
		if l.ID == 0 {
			m.newLine(l, now)
			continue
		}
		prev, ok := storedByID[l.ID]
		if !ok {
			return fmt.Errorf("line %d: %w", l.ID, port.ErrOptimisticLock)
		}
		if sameLine(prev, *l) {
			*l = prev
			continue
		}
		if prev.Version != l.Version {
			return fmt.Errorf("line %d: %w", l.ID, port.ErrOptimisticLock)
		}
		l.Version++
		l.CreatedDate = prev.CreatedDate
		l.UpdateDate = now
	}

	saved.Version++
	saved.CreatedDate = current.CreatedDate
	saved.UpdateDate = now
	m.orders[saved.ID] = saved
	*order = saved.Clone()
	return nil
}

func (m *MemoryAdapter) DeleteOrder(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return false, nil
	}
	delete(m.orders, id)
	return true, nil
}

// checkReferences mirrors the beer_id foreign key. Callers hold m.mu.
func (m *MemoryAdapter) checkReferences(lines []domain.BeerOrderLine) error {
	for _, l := range lines {
		if _, ok := m.beers[l.BeerID]; !ok {
			return fmt.Errorf("beer %d: %w", l.BeerID, port.ErrUnknownReference)
		}
	}
	return nil
}

func (m *MemoryAdapter) newLine(l *domain.BeerOrderLine, now time.Time) {
	m.lineSeq++
	l.ID = m.lineSeq
	l.Version = 0
	l.CreatedDate = now
	l.UpdateDate = now
}

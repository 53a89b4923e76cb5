package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/core/dto"
	"github.com/rl1809/beer-orders/internal/core/mapper"
	"github.com/rl1809/beer-orders/internal/port"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

type OrderService struct {
	orders port.OrderRepository
	beers  port.BeerRepository
	log    *zap.Logger
}

func NewOrderService(orders port.OrderRepository, beers port.BeerRepository, log *zap.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		beers:  beers,
		log:    log,
	}
}

func (s *OrderService) Create(ctx context.Context, in dto.BeerOrderDTO) (dto.BeerOrderDTO, error) {
	order := mapper.OrderFromDTO(in)
	if order.Status == "" {
		order.Status = domain.OrderStatusNew
	}

	for _, l := range in.Lines {
		line, err := s.buildLine(ctx, l)
		if err != nil {
			return dto.BeerOrderDTO{}, err
		}
		order.AddLine(line)
	}

	if err := s.orders.CreateOrder(ctx, &order); err != nil {
		return dto.BeerOrderDTO{}, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int("lines", len(order.Lines)),
	)
	return mapper.OrderToDTO(order), nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (dto.BeerOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return dto.BeerOrderDTO{}, err
	}
	return mapper.OrderToDTO(*order), nil
}

// List returns one page of orders ordered by id. A size above MaxPageSize is
// capped; a non-positive size falls back to DefaultPageSize.
func (s *OrderService) List(ctx context.Context, page, size int) (dto.Page[dto.BeerOrderDTO], error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		s.log.Debug("page size capped", zap.Int("requested", size), zap.Int("max", MaxPageSize))
		size = MaxPageSize
	}

	orders, total, err := s.orders.ListOrders(ctx, page, size)
	if err != nil {
		return dto.Page[dto.BeerOrderDTO]{}, fmt.Errorf("list orders: %w", err)
	}

	content := make([]dto.BeerOrderDTO, 0, len(orders))
	for _, o := range orders {
		content = append(content, mapper.OrderToDTO(o))
	}
	return dto.NewPage(content, page, size, total), nil
}

// Update replaces the order. The line collection is rebuilt from in.Lines, so
// existing lines are deleted and the supplied ones inserted with new ids.
func (s *OrderService) Update(ctx context.Context, id int64, in dto.BeerOrderDTO) (dto.BeerOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return dto.BeerOrderDTO{}, err
	}

	order.CustomerRef = in.CustomerRef
	order.PaymentAmount = mapper.Money(in.PaymentAmount)
	if in.Status != nil {
		order.Status = *in.Status
	}

	lines := make([]domain.BeerOrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		line, err := s.buildLine(ctx, l)
		if err != nil {
			return dto.BeerOrderDTO{}, err
		}
		lines = append(lines, line)
	}
	order.Lines = lines

	return s.save(ctx, order)
}

// Patch overwrites only the header fields present in in.
func (s *OrderService) Patch(ctx context.Context, id int64, in dto.BeerOrderPatchDTO) (dto.BeerOrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return dto.BeerOrderDTO{}, err
	}

	mapper.ApplyOrderPatch(in, order)
	return s.save(ctx, order)
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.orders.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if !deleted {
		return ErrOrderNotFound
	}

	s.log.Info("order deleted", zap.Int64("order_id", id))
	return nil
}

func (s *OrderService) AddLine(ctx context.Context, orderID int64, in dto.BeerOrderLineDTO) (dto.BeerOrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return dto.BeerOrderDTO{}, err
	}

	line, err := s.buildLine(ctx, in)
	if err != nil {
		return dto.BeerOrderDTO{}, err
	}
	order.AddLine(line)

	return s.save(ctx, order)
}

func (s *OrderService) UpdateLine(ctx context.Context, orderID, lineID int64, in dto.BeerOrderLineDTO) (dto.BeerOrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return dto.BeerOrderDTO{}, err
	}

	line := order.FindLine(lineID)
	if line == nil {
		return dto.BeerOrderDTO{}, ErrLineNotFound
	}

	if in.BeerID != nil && *in.BeerID != line.BeerID {
		beerID, err := s.resolveBeer(ctx, in.BeerID)
		if err != nil {
			return dto.BeerOrderDTO{}, err
		}
		line.BeerID = beerID
	}
	if in.OrderQuantity != nil {
		line.OrderQuantity = *in.OrderQuantity
	}
	if in.QuantityAllocated != nil {
		line.QuantityAllocated = *in.QuantityAllocated
	}
	if in.Status != nil {
		line.Status = *in.Status
	}

	return s.save(ctx, order)
}

// DeleteLine removes the line from the order. An id that is not on the order
// leaves the order untouched.
func (s *OrderService) DeleteLine(ctx context.Context, orderID, lineID int64) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.RemoveLine(lineID) {
		return nil
	}

	_, err = s.save(ctx, order)
	return err
}

func (s *OrderService) load(ctx context.Context, id int64) (*domain.BeerOrder, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) save(ctx context.Context, order *domain.BeerOrder) (dto.BeerOrderDTO, error) {
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return dto.BeerOrderDTO{}, fmt.Errorf("save order %d: %w", order.ID, err)
	}
	return mapper.OrderToDTO(*order), nil
}

func (s *OrderService) buildLine(ctx context.Context, in dto.BeerOrderLineDTO) (domain.BeerOrderLine, error) {
	beerID, err := s.resolveBeer(ctx, in.BeerID)
	if err != nil {
		return domain.BeerOrderLine{}, err
	}

	line := mapper.LineFromDTO(in)
	line.BeerID = beerID
	if line.Status == "" {
		line.Status = domain.LineStatusNew
	}
	return line, nil
}

func (s *OrderService) resolveBeer(ctx context.Context, id *int64) (int64, error) {
	if id == nil {
		return 0, ErrBeerRefRequired
	}

	beer, err := s.beers.GetBeer(ctx, *id)
	if err != nil {
		return 0, fmt.Errorf("get beer %d: %w", *id, err)
	}
	if beer == nil {
		return 0, fmt.Errorf("%w: %d", ErrBeerNotFound, *id)
	}
	return beer.ID, nil
}

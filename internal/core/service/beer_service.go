package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/beer-orders/internal/core/dto"
	"github.com/rl1809/beer-orders/internal/core/mapper"
	"github.com/rl1809/beer-orders/internal/port"
)

type BeerService struct {
	repo port.BeerRepository
	log  *zap.Logger
}

func NewBeerService(repo port.BeerRepository, log *zap.Logger) *BeerService {
	return &BeerService{repo: repo, log: log}
}

func (s *BeerService) Create(ctx context.Context, in dto.BeerDTO) (dto.BeerDTO, error) {
	beer := mapper.BeerFromDTO(in)
	if err := s.repo.CreateBeer(ctx, &beer); err != nil {
		return dto.BeerDTO{}, fmt.Errorf("create beer: %w", err)
	}

	s.log.Info("beer created", zap.Int64("beer_id", beer.ID), zap.String("upc", beer.UPC))
	return mapper.BeerToDTO(beer), nil
}

func (s *BeerService) Get(ctx context.Context, id int64) (dto.BeerDTO, error) {
	beer, err := s.repo.GetBeer(ctx, id)
	if err != nil {
		return dto.BeerDTO{}, fmt.Errorf("get beer %d: %w", id, err)
	}
	if beer == nil {
		return dto.BeerDTO{}, ErrBeerNotFound
	}
	return mapper.BeerToDTO(*beer), nil
}

func (s *BeerService) List(ctx context.Context) ([]dto.BeerDTO, error) {
	beers, err := s.repo.ListBeers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list beers: %w", err)
	}

	out := make([]dto.BeerDTO, 0, len(beers))
	for _, b := range beers {
		out = append(out, mapper.BeerToDTO(b))
	}
	return out, nil
}

// Update merges the supplied fields into the stored beer. The version check
// uses the loaded version, so a concurrent writer makes this fail with
// port.ErrOptimisticLock.
func (s *BeerService) Update(ctx context.Context, id int64, in dto.BeerDTO) (dto.BeerDTO, error) {
	beer, err := s.repo.GetBeer(ctx, id)
	if err != nil {
		return dto.BeerDTO{}, fmt.Errorf("get beer %d: %w", id, err)
	}
	if beer == nil {
		return dto.BeerDTO{}, ErrBeerNotFound
	}

	mapper.ApplyBeerDTO(in, beer)
	if err := s.repo.UpdateBeer(ctx, beer); err != nil {
		return dto.BeerDTO{}, fmt.Errorf("update beer %d: %w", id, err)
	}
	return mapper.BeerToDTO(*beer), nil
}

// Delete reports whether a beer with id existed and was removed.
func (s *BeerService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.DeleteBeer(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete beer %d: %w", id, err)
	}
	if deleted {
		s.log.Info("beer deleted", zap.Int64("beer_id", id))
	}
	return deleted, nil
}

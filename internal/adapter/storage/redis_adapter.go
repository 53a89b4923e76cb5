package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/beer-orders/internal/core/domain"
)

const (
	beerKeyPrefix        = "beer:"
	idempotencyKeyPrefix = "idempotency:"
)

type RedisAdapter struct {
	client         *redis.Client
	beerTTL        time.Duration
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, beerTTL, idempotencyTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{
		client:         client,
		beerTTL:        beerTTL,
		idempotencyTTL: idempotencyTTL,
	}
}

func beerKey(id int64) string {
	return beerKeyPrefix + strconv.FormatInt(id, 10)
}

func (r *RedisAdapter) GetBeer(ctx context.Context, id int64) (*domain.Beer, error) {
	raw, err := r.client.Get(ctx, beerKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var beer domain.Beer
	if err := json.Unmarshal(raw, &beer); err != nil {
		return nil, fmt.Errorf("decode cached beer %d: %w", id, err)
	}
	return &beer, nil
}

func (r *RedisAdapter) SetBeer(ctx context.Context, beer domain.Beer) error {
	raw, err := json.Marshal(beer)
	if err != nil {
		return fmt.Errorf("encode beer %d: %w", beer.ID, err)
	}
	return r.client.Set(ctx, beerKey(beer.ID), raw, r.beerTTL).Err()
}

func (r *RedisAdapter) InvalidateBeer(ctx context.Context, id int64) error {
	return r.client.Del(ctx, beerKey(id)).Err()
}

// SetIdempotency records key and reports whether it was seen for the first time.
func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

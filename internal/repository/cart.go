package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-payments/internal/model"

	"github.com/redis/go-redis/v9"
)

var ErrCartNotFound = errors.New("cart not found")

type CartRepository interface {
	Get(ctx context.Context, cartID string) (*model.ShoppingCart, error)
	Set(ctx context.Context, cart *model.ShoppingCart) error
	Delete(ctx context.Context, cartID string) error
}

type redisCartRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartRepository(rdb *redis.Client, ttl time.Duration) CartRepository {
	return &redisCartRepository{rdb: rdb, ttl: ttl}
}

func cartKey(cartID string) string {
	return "cart:" + cartID
}

func (r *redisCartRepository) Get(ctx context.Context, cartID string) (*model.ShoppingCart, error) {
	raw, err := r.rdb.Get(ctx, cartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart model.ShoppingCart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &cart, nil
}

func (r *redisCartRepository) Set(ctx context.Context, cart *model.ShoppingCart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return r.rdb.Set(ctx, cartKey(cart.ID), raw, r.ttl).Err()
}

func (r *redisCartRepository) Delete(ctx context.Context, cartID string) error {
	return r.rdb.Del(ctx, cartKey(cartID)).Err()
}

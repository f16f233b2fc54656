package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisSessionIndex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionIndex maps anonymous session ids to cart ids in redis.
// Entries expire with the session lifetime; a missing entry just means the
// session never had a cart (or it was already merged).
func NewRedisSessionIndex(client *redis.Client, ttl time.Duration) SessionIndex {
	return &redisSessionIndex{client: client, ttl: ttl}
}

func (r *redisSessionIndex) StoreCartID(ctx context.Context, sessionID, cartID string) error {
	if err := r.client.Set(ctx, indexKey(sessionID), cartID, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisSessionIndex) GetCartID(ctx context.Context, sessionID string) (string, error) {
	cartID, err := r.client.Get(ctx, indexKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotIndexed
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return cartID, nil
}

func (r *redisSessionIndex) RemoveCartID(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, indexKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func indexKey(sessionID string) string {
	return fmt.Sprintf("session-cart:%s", sessionID)
}

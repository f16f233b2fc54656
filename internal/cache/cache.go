package cache

import (
	"context"
	"errors"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

// CartCache caches the loaded aggregate per owner key (customer or session).
// Every mutation invalidates; only the read path populates.
type CartCache interface {
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)
	Set(ctx context.Context, ownerKey string, cart *domain.Cart) error
	Delete(ctx context.Context, ownerKey string) error
}

var ErrCacheMiss = errors.New("cache miss")

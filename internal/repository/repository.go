package repository

import (
	"context"
	"errors"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrVersionConflict means another request persisted the cart since it
	// was loaded. Retryable by the caller after re-deriving intent.
	ErrVersionConflict    = errors.New("cart was modified concurrently")
	ErrSessionNotIndexed  = errors.New("no cart indexed for session")
	ErrDuplicateCartOwner = errors.New("a cart already exists for this owner")
)

// CartRepository persists the Cart aggregate. Save enforces the optimistic
// version check; SaveBoth commits a merge's target and source as one atomic
// unit so items are never duplicated into the target while the source stays
// unconsumed.
type CartRepository interface {
	FindByID(ctx context.Context, cartID string) (*domain.Cart, error)
	FindByCustomerID(ctx context.Context, customerID string) (*domain.Cart, error)
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	SaveBoth(ctx context.Context, target, source *domain.Cart) error
}

// SnapshotStore persists immutable checkout snapshots. Delete exists only as
// a compensation for a failed checkout commit, never as a user operation.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *domain.CartSnapshot) error
	FindByID(ctx context.Context, snapshotID string) (*domain.CartSnapshot, error)
	Delete(ctx context.Context, snapshotID string) error
	Close() error
}

// SessionIndex maps an anonymous session id to its cart id so a later
// authenticated merge can locate the session cart.
type SessionIndex interface {
	StoreCartID(ctx context.Context, sessionID, cartID string) error
	GetCartID(ctx context.Context, sessionID string) (string, error)
	RemoveCartID(ctx context.Context, sessionID string) error
}

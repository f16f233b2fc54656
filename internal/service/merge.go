package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/publisher"
	"github.com/vonomarap/kanokna-sub000/internal/repository"
)

const (
	PromoSourceAuthenticated = "AUTHENTICATED"
	PromoSourceAnonymous     = "ANONYMOUS"
)

type MergeResult struct {
	TargetCartID       string
	SourceCartID       string
	ItemsMerged        int
	ItemsAdded         int
	PromoCodeSource    string
	PromoCodePreserved bool
	Refresh            *PriceRefreshResult
}

// CanMerge is the precheck callers run before MergeCarts: there must be an
// active, non-empty session cart that is not the customer's own cart.
func (s *CartService) CanMerge(ctx context.Context, sessionID, customerID string) (bool, error) {
	if sessionID == "" || customerID == "" {
		return false, ErrMissingIdentifier
	}

	source, err := s.findSourceCart(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) || errors.Is(err, repository.ErrSessionNotIndexed) {
			return false, nil
		}
		return false, err
	}
	if source.IsEmpty() || source.Status.IsTerminal() {
		return false, nil
	}
	if source.CustomerID == customerID {
		return false, nil
	}
	return true, nil
}

// MergeCarts absorbs the anonymous session cart into the customer's cart.
// Items matching by configuration hash get their quantities summed, clamped
// to the per-item maximum; the rest are copied over as new entries. The target's promo wins over the source's.
// Target and source are committed as one atomic unit so items can never be
// duplicated into the target while the source stays unconsumed.
func (s *CartService) MergeCarts(ctx context.Context, sessionID, customerID string) (*MergeResult, error) {
	if sessionID == "" || customerID == "" {
		return nil, ErrMissingIdentifier
	}

	source, err := s.findSourceCart(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) || errors.Is(err, repository.ErrSessionNotIndexed) {
			return nil, ErrCannotMerge
		}
		return nil, err
	}
	if source.IsEmpty() || source.Status.IsTerminal() {
		return nil, ErrCannotMerge
	}

	target, err := s.loadOrCreate(ctx, Owner{CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	if target.ID == source.ID {
		return nil, ErrCannotMerge
	}

	result := &MergeResult{
		TargetCartID: target.ID,
		SourceCartID: source.ID,
	}

	for _, item := range source.Items {
		if _, exists := target.FindItemByHash(item.ConfigurationHash); exists {
			result.ItemsMerged++
		} else {
			result.ItemsAdded++
		}
		if err := target.AddItem(item, s.cfg.MaxItemQuantity); err != nil {
			return nil, err
		}
	}

	switch {
	case target.AppliedPromo != nil:
		result.PromoCodeSource = PromoSourceAuthenticated
		result.PromoCodePreserved = true
	case source.AppliedPromo != nil:
		if err := target.ApplyPromo(*source.AppliedPromo); err != nil {
			return nil, err
		}
		result.PromoCodeSource = PromoSourceAnonymous
		result.PromoCodePreserved = true
	}

	// Merged items may carry stale quotes; refresh before handing the cart
	// back. A failed refresh does not undo the merge, it just reports.
	result.Refresh = s.refreshAllPrices(ctx, target)

	source.Clear()
	if err := source.MarkMerged(); err != nil {
		return nil, err
	}

	if err := s.repo.SaveBoth(ctx, target, source); err != nil {
		return nil, fmt.Errorf("failed to persist merge: %w", err)
	}

	if err := s.sessions.RemoveCartID(ctx, sessionID); err != nil {
		log.Printf("failed to drop session index %s after merge: %v", sessionID, err)
	}
	s.invalidateCache(Owner{CustomerID: customerID})
	s.invalidateCache(Owner{SessionID: sessionID})

	s.events.Publish(ctx, publisher.EventCartsMerged, target.ID, publisher.CartsMergedEvent{
		TargetCartID:    target.ID,
		SourceCartID:    source.ID,
		CustomerID:      customerID,
		ItemsMerged:     result.ItemsMerged,
		ItemsAdded:      result.ItemsAdded,
		PromoCodeSource: result.PromoCodeSource,
	})
	return result, nil
}

// findSourceCart resolves the session cart through the session index first,
// falling back to a repository lookup when the index entry expired.
func (s *CartService) findSourceCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cartID, err := s.sessions.GetCartID(ctx, sessionID)
	if err == nil {
		return s.repo.FindByID(ctx, cartID)
	}
	if !errors.Is(err, repository.ErrSessionNotIndexed) {
		return nil, err
	}
	return s.repo.FindBySessionID(ctx, sessionID)
}

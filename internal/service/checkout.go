package service

import (
	"context"
	"fmt"
	"log"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/publisher"
)

type CheckoutOutcome string

const (
	CheckoutCreated                CheckoutOutcome = "CREATED"
	CheckoutInvalidItems           CheckoutOutcome = "INVALID_ITEMS"
	CheckoutPricingFailed          CheckoutOutcome = "PRICING_FAILED"
	CheckoutRequiresAcknowledgment CheckoutOutcome = "REQUIRES_ACKNOWLEDGMENT"
)

type PriceChange struct {
	PreviousTotal int64
	NewTotal      int64
	ChangePercent float64
}

// CheckoutResult is a tagged result: exactly one outcome, with the detail
// fields for that outcome populated, so callers can render distinct messages
// instead of unpacking a generic error.
type CheckoutResult struct {
	Outcome          CheckoutOutcome
	Snapshot         *domain.CartSnapshot
	InvalidItemCount int
	InvalidItemIDs   []string
	PriceChange      *PriceChange
}

// Checkout runs the two-phase snapshot flow:
//  1. every item must validate against the catalog — here UNKNOWN blocks,
//     unlike the lazy on-read revalidation;
//  2. every price is refreshed — total refresh failure blocks;
//  3. a price change past the threshold blocks until the caller re-invokes
//     with acknowledge=true;
//  4. otherwise an immutable snapshot is stored and the cart is marked
//     checked out.
func (s *CartService) Checkout(ctx context.Context, customerID string, acknowledge bool) (*CheckoutResult, error) {
	if customerID == "" {
		return nil, ErrAnonymousCheckout
	}
	owner := Owner{CustomerID: customerID}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, fmt.Errorf("cannot checkout cart %s: %w", cart.ID, domain.ErrEmptyCart)
	}

	if stale := s.staleItemIDs(cart); len(stale) > 0 {
		log.Printf("checkout for cart %s found %d stale quotes", cart.ID, len(stale))
	}

	report := s.revalidateItems(ctx, cart)
	if !report.allValid() {
		if err := s.persist(ctx, owner, cart); err != nil {
			log.Printf("failed to persist validation statuses for cart %s: %v", cart.ID, err)
		}
		blocking := report.blockingItemIDs()
		return &CheckoutResult{
			Outcome:          CheckoutInvalidItems,
			InvalidItemCount: len(blocking),
			InvalidItemIDs:   blocking,
		}, nil
	}

	refresh := s.refreshAllPrices(ctx, cart)
	if refresh.SuccessCount == 0 {
		return &CheckoutResult{Outcome: CheckoutPricingFailed}, nil
	}

	if refresh.TotalChanged && s.isPriceChangeSignificant(refresh.PreviousTotal, refresh.NewTotal) && !acknowledge {
		// Persist the refreshed prices so the acknowledging retry sees the
		// same totals it was shown.
		if err := s.persist(ctx, owner, cart); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed cart: %w", err)
		}
		return &CheckoutResult{
			Outcome: CheckoutRequiresAcknowledgment,
			PriceChange: &PriceChange{
				PreviousTotal: refresh.PreviousTotal,
				NewTotal:      refresh.NewTotal,
				ChangePercent: refresh.ChangePercent,
			},
		}, nil
	}

	now := s.now()
	snapshot, err := cart.Snapshot(s.newID(), s.cfg.DefaultCurrency, s.cfg.SnapshotValidity, now)
	if err != nil {
		return nil, err
	}
	if err := cart.MarkCheckedOut(); err != nil {
		return nil, err
	}

	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	if err := s.persist(ctx, owner, cart); err != nil {
		// Compensate: the snapshot row must not outlive a failed checkout.
		if delErr := s.snapshots.Delete(ctx, snapshot.SnapshotID); delErr != nil {
			log.Printf("failed to delete orphan snapshot %s: %v", snapshot.SnapshotID, delErr)
		}
		return nil, fmt.Errorf("failed to persist checked out cart: %w", err)
	}

	s.events.Publish(ctx, publisher.EventCheckoutCreated, cart.ID, publisher.CheckoutCreatedEvent{
		SnapshotID: snapshot.SnapshotID,
		CartID:     cart.ID,
		CustomerID: customerID,
		Totals:     snapshot.Totals,
		ItemCount:  snapshot.Totals.ItemCount,
		ValidUntil: snapshot.ValidUntil,
	})

	return &CheckoutResult{
		Outcome:  CheckoutCreated,
		Snapshot: snapshot,
	}, nil
}

package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/publisher"
)

// QuoteOutcome classifies one quote fetch. Expired means the capability
// answered but the quote's validity window had already passed; the
// orchestrator detects that itself instead of trusting the success flag.
type QuoteOutcome struct {
	Available  bool
	Expired    bool
	QuoteID    string
	UnitPrice  int64
	ValidUntil time.Time
}

// PriceRefreshResult reports a per-item refresh. Partial failure is a
// first-class outcome: some items refreshed, some not.
type PriceRefreshResult struct {
	PreviousTotal int64
	NewTotal      int64
	ChangePercent float64
	ItemsUpdated  []string
	SuccessCount  int
	FailCount     int
	TotalChanged  bool
}

func (s *CartService) fetchQuote(ctx context.Context, productTemplateID string, cfg domain.ConfigurationSnapshot) QuoteOutcome {
	quote := s.pricing.CalculateQuote(ctx, productTemplateID, cfg, s.cfg.DefaultCurrency)
	if !quote.Available {
		return QuoteOutcome{}
	}
	if !quote.ValidUntil.After(s.now()) {
		return QuoteOutcome{Available: true, Expired: true}
	}
	return QuoteOutcome{
		Available:  true,
		QuoteID:    quote.QuoteID,
		UnitPrice:  quote.UnitPrice,
		ValidUntil: quote.ValidUntil,
	}
}

// refreshAllPrices fetches a fresh quote for every item, counting successes
// and failures independently. If at least one item refreshed, totals are
// recomputed and an applied promo's discount is re-derived against the new
// subtotal; when the promo validation call itself is unavailable the
// existing discount stays unchanged.
func (s *CartService) refreshAllPrices(ctx context.Context, cart *domain.Cart) *PriceRefreshResult {
	result := &PriceRefreshResult{
		PreviousTotal: cart.Totals.Total,
	}

	for _, item := range cart.Items {
		quote := s.fetchQuote(ctx, item.ProductTemplateID, item.Configuration)
		if !quote.Available || quote.Expired {
			cart.MarkPriceStale(item.ItemID)
			result.FailCount++
			continue
		}

		if err := cart.ApplyQuote(item.ItemID, quote.QuoteID, quote.UnitPrice, quote.ValidUntil); err != nil {
			result.FailCount++
			continue
		}
		result.ItemsUpdated = append(result.ItemsUpdated, item.ItemID)
		result.SuccessCount++
	}

	if result.SuccessCount > 0 && cart.AppliedPromo != nil {
		validation := s.pricing.ValidatePromoCode(ctx, cart.AppliedPromo.Code, cart.Totals.Subtotal)
		switch {
		case !validation.Available:
			log.Printf("promo re-derivation unavailable for cart %s, keeping discount %d", cart.ID, cart.AppliedPromo.DiscountAmount)
		case validation.Valid:
			cart.RecalculatePromoDiscount(validation.DiscountAmount)
		}
	}

	result.NewTotal = cart.Totals.Total
	result.TotalChanged = result.NewTotal != result.PreviousTotal
	result.ChangePercent = changePercent(result.PreviousTotal, result.NewTotal)
	return result
}

// RefreshPrices reloads the cart and refreshes every quote. Total failure
// surfaces as ErrPricingUnavailable together with the counts; partial
// failure is reported in the result only.
func (s *CartService) RefreshPrices(ctx context.Context, owner Owner) (*PriceRefreshResult, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	result := s.refreshAllPrices(ctx, cart)
	if result.SuccessCount == 0 {
		return result, ErrPricingUnavailable
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.events.Publish(ctx, publisher.EventPricesRefreshed, cart.ID, publisher.PricesRefreshedEvent{
		CartID:        cart.ID,
		PreviousTotal: result.PreviousTotal,
		NewTotal:      result.NewTotal,
		ChangePercent: result.ChangePercent,
		SuccessCount:  result.SuccessCount,
		FailCount:     result.FailCount,
	})
	return result, nil
}

func (s *CartService) isPriceChangeSignificant(previous, current int64) bool {
	return changePercent(previous, current) > s.cfg.PriceChangeAckThresholdPct
}

// staleItemIDs reports items whose quote validity window has passed.
func (s *CartService) staleItemIDs(cart *domain.Cart) []string {
	var stale []string
	now := s.now()
	for _, item := range cart.Items {
		if item.Quote.Stale(now) {
			stale = append(stale, item.ItemID)
		}
	}
	return stale
}

func changePercent(previous, current int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return math.Abs(float64(current-previous)) / float64(previous) * 100
}

package service

import (
	"context"
	"fmt"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/publisher"
)

// ApplyPromoCode validates the code against the current subtotal through the
// pricing capability. A reachable-but-rejecting capability surfaces as
// PromoRejectedError with a cart-level code and leaves the cart untouched;
// an unreachable capability surfaces as ErrPricingUnavailable. A valid code
// replaces any existing promo (no stacking).
func (s *CartService) ApplyPromoCode(ctx context.Context, owner Owner, code string) (*domain.Cart, error) {
	if !owner.valid() {
		return nil, ErrMissingIdentifier
	}
	if code == "" {
		return nil, &PromoRejectedError{Code: PromoCodeInvalid, Message: "promo code is empty"}
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	validation := s.pricing.ValidatePromoCode(ctx, code, cart.Totals.Subtotal)
	if !validation.Available {
		return nil, ErrPricingUnavailable
	}
	if !validation.Valid {
		return nil, &PromoRejectedError{
			Code:    mapPromoErrorCode(validation.ErrorCode),
			Message: validation.ErrorMessage,
		}
	}

	promo := domain.AppliedPromoCode{
		Code:           code,
		DiscountAmount: validation.DiscountAmount,
		Description:    validation.Description,
		AppliedAt:      s.now(),
	}
	if err := cart.ApplyPromo(promo); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.events.Publish(ctx, publisher.EventPromoApplied, cart.ID, publisher.PromoEvent{
		CartID:         cart.ID,
		Code:           promo.Code,
		DiscountAmount: cart.Totals.Discount,
		CartTotal:      cart.Totals.Total,
	})
	return cart, nil
}

// RemovePromoCode is idempotent: removing when nothing is applied returns a
// nil promo and does not touch persistence.
func (s *CartService) RemovePromoCode(ctx context.Context, owner Owner) (*domain.AppliedPromoCode, *domain.Cart, error) {
	if !owner.valid() {
		return nil, nil, ErrMissingIdentifier
	}

	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, nil, err
	}

	removed := cart.RemovePromo()
	if removed == nil {
		return nil, cart, nil
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, nil, fmt.Errorf("failed to persist cart: %w", err)
	}

	s.events.Publish(ctx, publisher.EventPromoRemoved, cart.ID, publisher.PromoEvent{
		CartID:         cart.ID,
		Code:           removed.Code,
		DiscountAmount: removed.DiscountAmount,
		CartTotal:      cart.Totals.Total,
	})
	return removed, cart, nil
}

// mapPromoErrorCode remaps the pricing capability's own rejection codes to
// stable cart-level codes.
func mapPromoErrorCode(capabilityCode string) string {
	switch capabilityCode {
	case "MIN_SUBTOTAL_NOT_MET", "MINIMUM_ORDER_VALUE":
		return PromoCodeMinimumNotMet
	case "CODE_EXPIRED":
		return PromoCodeExpired
	default:
		return PromoCodeInvalid
	}
}

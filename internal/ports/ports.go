// Package ports declares the outbound capability contracts the cart core
// consumes. Implementations are external collaborators; the core only
// classifies their answers (available / unavailable / invalid) and never
// retries internally.
package ports

import (
	"context"
	"time"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

// ConfigValidation is the catalog capability's answer for one configuration.
// Available=false means the capability could not be reached, which is a
// different outcome from a reachable capability rejecting the configuration.
type ConfigValidation struct {
	Available bool
	Valid     bool
	Errors    []string
}

type CatalogService interface {
	ValidateConfiguration(ctx context.Context, productTemplateID string, cfg domain.ConfigurationSnapshot) ConfigValidation
}

// Quote is a time-boxed price commitment for one configuration.
type Quote struct {
	Available  bool
	QuoteID    string
	UnitPrice  int64
	ValidUntil time.Time
}

// PromoValidation carries the pricing capability's verdict on a promo code
// against a given subtotal. ErrorCode is the capability's own code (e.g.
// MIN_SUBTOTAL_NOT_MET) and gets remapped at the cart boundary.
type PromoValidation struct {
	Available      bool
	Valid          bool
	DiscountAmount int64
	Description    string
	ErrorCode      string
	ErrorMessage   string
}

type PricingService interface {
	CalculateQuote(ctx context.Context, productTemplateID string, cfg domain.ConfigurationSnapshot, currency string) Quote
	ValidatePromoCode(ctx context.Context, code string, subtotal int64) PromoValidation
}

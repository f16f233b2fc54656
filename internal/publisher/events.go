package publisher

import (
	"time"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
)

const (
	EventCartCreated     = "cart.created"
	EventItemAdded       = "cart.item_added"
	EventItemUpdated     = "cart.item_updated"
	EventItemRemoved     = "cart.item_removed"
	EventCartCleared     = "cart.cleared"
	EventPricesRefreshed = "cart.prices_refreshed"
	EventPromoApplied    = "cart.promo_applied"
	EventPromoRemoved    = "cart.promo_removed"
	EventCartsMerged     = "cart.merged"
	EventCheckoutCreated = "cart.checkout_created"
)

// Event payloads are denormalized so downstream consumers never need to
// re-read the cart.

type CartCreatedEvent struct {
	CartID     string    `json:"cart_id"`
	CustomerID string    `json:"customer_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ItemEvent struct {
	CartID            string `json:"cart_id"`
	ItemID            string `json:"item_id"`
	ProductTemplateID string `json:"product_template_id,omitempty"`
	ProductName       string `json:"product_name,omitempty"`
	Quantity          int    `json:"quantity"`
	UnitPrice         int64  `json:"unit_price"`
	LineTotal         int64  `json:"line_total"`
	CartTotal         int64  `json:"cart_total"`
	CartItemCount     int    `json:"cart_item_count"`
}

type CartClearedEvent struct {
	CartID       string `json:"cart_id"`
	ItemsRemoved int    `json:"items_removed"`
}

type PricesRefreshedEvent struct {
	CartID        string  `json:"cart_id"`
	PreviousTotal int64   `json:"previous_total"`
	NewTotal      int64   `json:"new_total"`
	ChangePercent float64 `json:"change_percent"`
	SuccessCount  int     `json:"success_count"`
	FailCount     int     `json:"fail_count"`
}

type PromoEvent struct {
	CartID         string `json:"cart_id"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
	CartTotal      int64  `json:"cart_total"`
}

type CartsMergedEvent struct {
	TargetCartID    string `json:"target_cart_id"`
	SourceCartID    string `json:"source_cart_id"`
	CustomerID      string `json:"customer_id"`
	ItemsMerged     int    `json:"items_merged"`
	ItemsAdded      int    `json:"items_added"`
	PromoCodeSource string `json:"promo_code_source,omitempty"`
}

type CheckoutCreatedEvent struct {
	SnapshotID string        `json:"snapshot_id"`
	CartID     string        `json:"cart_id"`
	CustomerID string        `json:"customer_id"`
	Totals     domain.Totals `json:"totals"`
	ItemCount  int           `json:"item_count"`
	ValidUntil time.Time     `json:"valid_until"`
}

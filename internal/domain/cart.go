package domain

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
	CartStatusMerged     CartStatus = "MERGED"
)

func (s CartStatus) IsTerminal() bool {
	return s == CartStatusCheckedOut || s == CartStatusMerged
}

// String representation (for logging)
func (s CartStatus) String() string {
	return string(s)
}

type ValidationStatus string

const (
	ValidationStatusValid   ValidationStatus = "VALID"
	ValidationStatusInvalid ValidationStatus = "INVALID"
	// ValidationStatusUnknown means the catalog could not be reached at the
	// last check, not that the configuration failed validation.
	ValidationStatusUnknown ValidationStatus = "UNKNOWN"
)

// Cart is the aggregate root. It is keyed by exactly one of CustomerID or
// SessionID, loaded/mutated/persisted within one request, and guarded
// cross-request by the Version field (optimistic concurrency).
type Cart struct {
	ID           string            `bson:"_id" json:"id"`
	CustomerID   string            `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	SessionID    string            `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Status       CartStatus        `bson:"status" json:"status"`
	Items        []CartItem        `bson:"items" json:"items"`
	AppliedPromo *AppliedPromoCode `bson:"applied_promo,omitempty" json:"applied_promo,omitempty"`
	Totals       Totals            `bson:"totals" json:"totals"`
	Version      int64             `bson:"version" json:"version"`
	CreatedAt    time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at" json:"updated_at"`

	// Tax is supplied by the caller, never persisted. Nil means zero tax.
	Tax TaxPolicy `bson:"-" json:"-"`
}

type CartItem struct {
	ItemID            string                `bson:"item_id" json:"item_id"`
	ProductTemplateID string                `bson:"product_template_id" json:"product_template_id"`
	ProductName       string                `bson:"product_name" json:"product_name"`
	ProductFamily     string                `bson:"product_family" json:"product_family"`
	Configuration     ConfigurationSnapshot `bson:"configuration" json:"configuration"`
	ConfigurationHash string                `bson:"configuration_hash" json:"configuration_hash"`
	Quantity          int                   `bson:"quantity" json:"quantity"`
	UnitPrice         int64                 `bson:"unit_price" json:"unit_price"`
	LineTotal         int64                 `bson:"line_total" json:"line_total"`
	Quote             QuoteReference        `bson:"quote" json:"quote"`
	ValidationStatus  ValidationStatus      `bson:"validation_status" json:"validation_status"`
	PriceStale        bool                  `bson:"price_stale" json:"price_stale"`
	AddedAt           time.Time             `bson:"added_at" json:"added_at"`
}

// ConfigurationSnapshot is immutable once the item is created. Changing a
// configuration means removing the item and adding a new one.
type ConfigurationSnapshot struct {
	WidthMM         int               `bson:"width_mm" json:"width_mm"`
	HeightMM        int               `bson:"height_mm" json:"height_mm"`
	SelectedOptions map[string]string `bson:"selected_options" json:"selected_options"`
	BOMLines        []BOMLine         `bson:"bom_lines" json:"bom_lines"`
}

type BOMLine struct {
	SKU         string `bson:"sku" json:"sku"`
	Description string `bson:"description" json:"description"`
	Quantity    int    `bson:"quantity" json:"quantity"`
}

// QuoteReference is a time-boxed price claim from the pricing capability.
type QuoteReference struct {
	QuoteID    string    `bson:"quote_id" json:"quote_id"`
	ValidUntil time.Time `bson:"valid_until" json:"valid_until"`
}

func (q QuoteReference) Stale(now time.Time) bool {
	return now.After(q.ValidUntil)
}

type AppliedPromoCode struct {
	Code           string    `bson:"code" json:"code"`
	DiscountAmount int64     `bson:"discount_amount" json:"discount_amount"`
	Description    string    `bson:"description" json:"description"`
	AppliedAt      time.Time `bson:"applied_at" json:"applied_at"`
}

func NewCart(id, customerID, sessionID string, now time.Time) *Cart {
	return &Cart{
		ID:         id,
		CustomerID: customerID,
		SessionID:  sessionID,
		Status:     CartStatusActive,
		Items:      []CartItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddItem appends the item and recomputes totals. An item with the same
// configuration hash already in the cart gets its quantity bumped instead of
// producing a duplicate line; the summed quantity is clamped to maxQuantity
// so repeated adds cannot push a line past the configured limit.
func (c *Cart) AddItem(item CartItem, maxQuantity int) error {
	if c.Status.IsTerminal() {
		return ErrCartTerminal
	}
	if existing := c.findByHash(item.ConfigurationHash); existing != nil {
		existing.Quantity += item.Quantity
		if existing.Quantity > maxQuantity {
			existing.Quantity = maxQuantity
		}
		existing.LineTotal = existing.UnitPrice * int64(existing.Quantity)
	} else {
		item.LineTotal = item.UnitPrice * int64(item.Quantity)
		c.Items = append(c.Items, item)
	}
	c.recomputeTotals()
	return nil
}

func (c *Cart) UpdateItemQuantity(itemID string, quantity, maxQuantity int) error {
	if c.Status.IsTerminal() {
		return ErrCartTerminal
	}
	if quantity < 1 || quantity > maxQuantity {
		return ErrInvalidQuantity
	}
	item := c.findByID(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	item.LineTotal = item.UnitPrice * int64(quantity)
	c.recomputeTotals()
	return nil
}

func (c *Cart) RemoveItem(itemID string) error {
	if c.Status.IsTerminal() {
		return ErrCartTerminal
	}
	for i, item := range c.Items {
		if item.ItemID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.recomputeTotals()
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear removes all items and the applied promo in one step. Idempotent:
// clearing an already-empty cart succeeds with no observable change.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.AppliedPromo = nil
	c.recomputeTotals()
}

// ApplyPromo replaces any existing promo (no stacking).
func (c *Cart) ApplyPromo(promo AppliedPromoCode) error {
	if c.Status.IsTerminal() {
		return ErrCartTerminal
	}
	c.AppliedPromo = &promo
	c.recomputeTotals()
	return nil
}

// RemovePromo clears the applied promo and returns it, or nil if none was
// applied. Never errors on a no-op removal.
func (c *Cart) RemovePromo() *AppliedPromoCode {
	removed := c.AppliedPromo
	c.AppliedPromo = nil
	c.recomputeTotals()
	return removed
}

// RecalculatePromoDiscount re-derives the discount against the current
// subtotal after a price refresh, without re-validating eligibility.
func (c *Cart) RecalculatePromoDiscount(discount int64) {
	if c.AppliedPromo == nil {
		return
	}
	c.AppliedPromo.DiscountAmount = discount
	c.recomputeTotals()
}

// ApplyQuote installs a fresh price quote on an item, clears its stale flag
// and recomputes totals.
func (c *Cart) ApplyQuote(itemID, quoteID string, unitPrice int64, validUntil time.Time) error {
	item := c.findByID(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	item.UnitPrice = unitPrice
	item.LineTotal = unitPrice * int64(item.Quantity)
	item.Quote = QuoteReference{QuoteID: quoteID, ValidUntil: validUntil}
	item.PriceStale = false
	c.recomputeTotals()
	return nil
}

// MarkPriceStale flags an item whose quote is suspected to no longer hold.
// Cleared on the next successful refresh.
func (c *Cart) MarkPriceStale(itemID string) {
	if item := c.findByID(itemID); item != nil {
		item.PriceStale = true
	}
}

// SetItemValidationStatus records the catalog verdict for an item.
func (c *Cart) SetItemValidationStatus(itemID string, status ValidationStatus) {
	if item := c.findByID(itemID); item != nil {
		item.ValidationStatus = status
	}
}

func (c *Cart) MarkCheckedOut() error {
	if c.Status.IsTerminal() {
		return ErrCartTerminal
	}
	c.Status = CartStatusCheckedOut
	return nil
}

func (c *Cart) MarkMerged() error {
	if c.Status.IsTerminal() {
		return ErrCartTerminal
	}
	c.Status = CartStatusMerged
	return nil
}

func (c *Cart) FindItem(itemID string) (CartItem, bool) {
	if item := c.findByID(itemID); item != nil {
		return *item, true
	}
	return CartItem{}, false
}

func (c *Cart) FindItemByHash(hash string) (CartItem, bool) {
	if item := c.findByHash(hash); item != nil {
		return *item, true
	}
	return CartItem{}, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) findByID(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) findByHash(hash string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ConfigurationHash == hash {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) recomputeTotals() {
	c.Totals = CalculateTotals(c.Items, c.AppliedPromo, c.Tax)
}

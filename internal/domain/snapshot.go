package domain

import "time"

// CartSnapshot is an immutable point-in-time copy of the cart taken at
// checkout. Item fields are denormalized copies, not references, so later
// cart changes cannot leak into a snapshot. A snapshot has its own validity
// window independent of the source cart's lifecycle.
type CartSnapshot struct {
	SnapshotID string            `json:"snapshot_id"`
	CartID     string            `json:"cart_id"`
	CustomerID string            `json:"customer_id"`
	Items      []SnapshotItem    `json:"items"`
	Totals     Totals            `json:"totals"`
	Promo      *AppliedPromoCode `json:"promo,omitempty"`
	Currency   string            `json:"currency"`
	CreatedAt  time.Time         `json:"created_at"`
	ValidUntil time.Time         `json:"valid_until"`
}

type SnapshotItem struct {
	ItemID            string                `json:"item_id"`
	ProductTemplateID string                `json:"product_template_id"`
	ProductName       string                `json:"product_name"`
	ProductFamily     string                `json:"product_family"`
	Configuration     ConfigurationSnapshot `json:"configuration"`
	ConfigurationHash string                `json:"configuration_hash"`
	Quantity          int                   `json:"quantity"`
	UnitPrice         int64                 `json:"unit_price"`
	LineTotal         int64                 `json:"line_total"`
	QuoteID           string                `json:"quote_id"`
}

// Snapshot copies the cart's current item, totals and promo state. It does
// not change the cart status; the caller marks the cart checked out and
// persists both together.
func (c *Cart) Snapshot(snapshotID, currency string, validity time.Duration, now time.Time) (*CartSnapshot, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]SnapshotItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = SnapshotItem{
			ItemID:            item.ItemID,
			ProductTemplateID: item.ProductTemplateID,
			ProductName:       item.ProductName,
			ProductFamily:     item.ProductFamily,
			Configuration:     item.Configuration,
			ConfigurationHash: item.ConfigurationHash,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			LineTotal:         item.LineTotal,
			QuoteID:           item.Quote.QuoteID,
		}
	}

	var promo *AppliedPromoCode
	if c.AppliedPromo != nil {
		p := *c.AppliedPromo
		promo = &p
	}

	return &CartSnapshot{
		SnapshotID: snapshotID,
		CartID:     c.ID,
		CustomerID: c.CustomerID,
		Items:      items,
		Totals:     c.Totals,
		Promo:      promo,
		Currency:   currency,
		CreatedAt:  now,
		ValidUntil: now.Add(validity),
	}, nil
}

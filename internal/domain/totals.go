package domain

// Totals is always a pure function of the cart's items and promo, recomputed
// after every structural change. Amounts are in minor currency units.
type Totals struct {
	Subtotal  int64 `bson:"subtotal" json:"subtotal"`
	Discount  int64 `bson:"discount" json:"discount"`
	Tax       int64 `bson:"tax" json:"tax"`
	Total     int64 `bson:"total" json:"total"`
	ItemCount int   `bson:"item_count" json:"item_count"`
}

// TaxPolicy computes tax over the discounted subtotal. The storefront has no
// concrete tax rules yet, so the policy is injected and defaults to zero.
type TaxPolicy func(taxable int64) int64

func ZeroTax(int64) int64 { return 0 }

// CalculateTotals sums line totals, clamps the promo discount to
// [0, subtotal] and floors the grand total at zero so a discount can never
// produce a negative amount. ItemCount is the sum of quantities, not the
// number of distinct lines.
func CalculateTotals(items []CartItem, promo *AppliedPromoCode, tax TaxPolicy) Totals {
	var subtotal int64
	var count int
	for _, item := range items {
		subtotal += item.UnitPrice * int64(item.Quantity)
		count += item.Quantity
	}

	var discount int64
	if promo != nil {
		discount = promo.DiscountAmount
		if discount < 0 {
			discount = 0
		}
		if discount > subtotal {
			discount = subtotal
		}
	}

	taxable := subtotal - discount
	var taxAmount int64
	if tax != nil {
		taxAmount = tax(taxable)
	}

	total := taxable + taxAmount
	if total < 0 {
		total = 0
	}

	return Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Tax:       taxAmount,
		Total:     total,
		ItemCount: count,
	}
}

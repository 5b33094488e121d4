package response

import (
	"time"

	"github.com/shopspring/decimal"
)

var saleDiscount = decimal.RequireFromString("0.9")

// IsOnSale reports whether now falls in the sale window. A window without a
// start is never on sale and a window without an end never closes.
func IsOnSale(saleStart *time.Time, saleEnd *time.Time, now time.Time) bool {
	if saleStart == nil {
		return false
	}
	if now.Before(*saleStart) {
		return false
	}
	return saleEnd == nil || !now.After(*saleEnd)
}

// CurrentPrice is price rounded to cents, discounted by 10% while on sale.
func CurrentPrice(price decimal.Decimal, onSale bool) decimal.Decimal {
	if onSale {
		return price.Mul(saleDiscount).Round(2)
	}
	return price.Round(2)
}

package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amount computes the discount a coupon grants against a cart total, in
// whole VND. A coupon that fails validation grants nothing.
func Amount(c Coupon, cartTotal int64) int64 {
	return AmountAt(c, cartTotal, time.Now())
}

// AmountAt is Amount evaluated at a fixed point in time.
//
// shipping and buy_x_get_y carry their raw discount_value: the first is
// settled against the shipping fee at fulfillment and the second
// reprices line items, so neither is capped by the cart total here.
func AmountAt(c Coupon, cartTotal int64, now time.Time) int64 {
	if !ValidateAt(c, cartTotal, now).Valid {
		return 0
	}

	var amount int64
	switch c.DiscountType {
	case TypePercentage:
		// Round half-up to whole VND after the percentage, not before:
		// 10% of 54,999 is 5,500, not 5,499.9 truncated.
		amount = decimal.NewFromInt(cartTotal).
			Mul(c.DiscountValue).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if amount > cartTotal {
			amount = cartTotal
		}
	case TypeFixedAmount:
		amount = c.DiscountValue.Round(0).IntPart()
		// A fixed discount never exceeds what the customer would pay.
		if amount > cartTotal {
			amount = cartTotal
		}
	case TypeShipping, TypeBuyXGetY:
		amount = c.DiscountValue.Round(0).IntPart()
	default:
		return 0
	}

	if amount < 0 {
		return 0
	}
	if c.MaxDiscountAmount > 0 && amount > c.MaxDiscountAmount {
		amount = c.MaxDiscountAmount
	}
	return amount
}

// FinalAmount is the cart total after applying the coupon, floored at
// zero.
func FinalAmount(c Coupon, cartTotal int64) int64 {
	return FinalAmountAt(c, cartTotal, time.Now())
}

// FinalAmountAt is FinalAmount evaluated at a fixed point in time.
func FinalAmountAt(c Coupon, cartTotal int64, now time.Time) int64 {
	final := cartTotal - AmountAt(c, cartTotal, now)
	if final < 0 {
		return 0
	}
	return final
}

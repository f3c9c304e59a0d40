package discount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountAt(t *testing.T) {
	tests := []struct {
		name      string
		coupon    Coupon
		cartTotal int64
		want      int64
	}{
		{
			name: "percentage",
			coupon: Coupon{
				DiscountType:  TypePercentage,
				DiscountValue: decimal.NewFromInt(10),
				IsActive:      true,
			},
			cartTotal: 250000,
			want:      25000,
		},
		{
			name: "percentage rounds half up to whole VND",
			coupon: Coupon{
				DiscountType:  TypePercentage,
				DiscountValue: decimal.NewFromInt(10),
				IsActive:      true,
			},
			cartTotal: 54999,
			want:      5500,
		},
		{
			name: "percentage capped by max discount",
			coupon: Coupon{
				DiscountType:      TypePercentage,
				DiscountValue:     decimal.NewFromInt(20),
				MaxDiscountAmount: 30000,
				IsActive:          true,
			},
			cartTotal: 500000,
			want:      30000,
		},
		{
			name: "fixed amount",
			coupon: Coupon{
				DiscountType:  TypeFixedAmount,
				DiscountValue: decimal.NewFromInt(50000),
				IsActive:      true,
			},
			cartTotal: 300000,
			want:      50000,
		},
		{
			name: "fixed amount never exceeds cart total",
			coupon: Coupon{
				DiscountType:  TypeFixedAmount,
				DiscountValue: decimal.NewFromInt(50000),
				IsActive:      true,
			},
			cartTotal: 30000,
			want:      30000,
		},
		{
			name: "shipping carries its raw value",
			coupon: Coupon{
				DiscountType:  TypeShipping,
				DiscountValue: decimal.NewFromInt(30000),
				IsActive:      true,
			},
			cartTotal: 300000,
			want:      30000,
		},
		{
			name: "shipping not capped by cart total",
			coupon: Coupon{
				DiscountType:  TypeShipping,
				DiscountValue: decimal.NewFromInt(30000),
				IsActive:      true,
			},
			cartTotal: 10000,
			want:      30000,
		},
		{
			name: "shipping capped by max discount",
			coupon: Coupon{
				DiscountType:      TypeShipping,
				DiscountValue:     decimal.NewFromInt(30000),
				MaxDiscountAmount: 20000,
				IsActive:          true,
			},
			cartTotal: 300000,
			want:      20000,
		},
		{
			name: "buy x get y carries its raw value",
			coupon: Coupon{
				DiscountType:  TypeBuyXGetY,
				DiscountValue: decimal.NewFromInt(15000),
				IsActive:      true,
			},
			cartTotal: 300000,
			want:      15000,
		},
		{
			name: "empty cart",
			coupon: Coupon{
				DiscountType:  TypePercentage,
				DiscountValue: decimal.NewFromInt(10),
				IsActive:      true,
			},
			cartTotal: 0,
			want:      0,
		},
		{
			name: "negative discount value clamps to zero",
			coupon: Coupon{
				DiscountType:  TypeFixedAmount,
				DiscountValue: decimal.NewFromInt(-5000),
				IsActive:      true,
			},
			cartTotal: 100000,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountAt(tt.coupon, tt.cartTotal, validateNow); got != tt.want {
				t.Errorf("AmountAt = %d, want %d", got, tt.want)
			}
		})
	}
}

// A coupon that fails any validation guard grants nothing, no matter
// what its discount_value says.
func TestAmountAt_InvalidCouponGrantsNothing(t *testing.T) {
	expired := date(t, "2020-01-01")
	tests := []struct {
		name   string
		coupon Coupon
	}{
		{
			name: "expired fixed amount",
			coupon: Coupon{
				DiscountType:  TypeFixedAmount,
				DiscountValue: decimal.NewFromInt(50000),
				EndDate:       expired,
				IsActive:      true,
			},
		},
		{
			name: "inactive percentage",
			coupon: Coupon{
				DiscountType:  TypePercentage,
				DiscountValue: decimal.NewFromInt(10),
			},
		},
		{
			name: "below minimum order",
			coupon: Coupon{
				DiscountType:   TypeFixedAmount,
				DiscountValue:  decimal.NewFromInt(50000),
				MinOrderAmount: 500000,
				IsActive:       true,
			},
		},
		{
			name: "usage limit reached",
			coupon: Coupon{
				DiscountType:  TypeFixedAmount,
				DiscountValue: decimal.NewFromInt(50000),
				UsageLimit:    100,
				UsedCount:     100,
				IsActive:      true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := ValidateAt(tt.coupon, 300000, validateNow); v.Valid {
				t.Fatal("fixture unexpectedly valid")
			}
			if got := AmountAt(tt.coupon, 300000, validateNow); got != 0 {
				t.Errorf("AmountAt = %d, want 0", got)
			}
			if got := FinalAmountAt(tt.coupon, 300000, validateNow); got != 300000 {
				t.Errorf("FinalAmountAt = %d, want 300000", got)
			}
		})
	}
}

func TestFinalAmountAt(t *testing.T) {
	percent10 := Coupon{DiscountType: TypePercentage, DiscountValue: decimal.NewFromInt(10), IsActive: true}
	if got := FinalAmountAt(percent10, 250000, validateNow); got != 225000 {
		t.Errorf("FinalAmountAt = %d, want 225000", got)
	}

	full := Coupon{DiscountType: TypeFixedAmount, DiscountValue: decimal.NewFromInt(999999), IsActive: true}
	if got := FinalAmountAt(full, 100000, validateNow); got != 0 {
		t.Errorf("FinalAmountAt = %d, want 0", got)
	}
}

// End-to-end check of the documented SUMMER10 example: a 10% coupon with
// a 200,000₫ minimum against a 250,000₫ cart validates and grants
// 25,000₫.
func TestSummerSaleScenario(t *testing.T) {
	c := activeCoupon(t)
	const cartTotal = 250000

	v := ValidateAt(c, cartTotal, validateNow)
	if !v.Valid {
		t.Fatalf("validation failed: %+v", v)
	}
	if got := AmountAt(c, cartTotal, validateNow); got != 25000 {
		t.Errorf("AmountAt = %d, want 25000", got)
	}
	if got := FinalAmountAt(c, cartTotal, validateNow); got != 225000 {
		t.Errorf("FinalAmountAt = %d, want 225000", got)
	}
}

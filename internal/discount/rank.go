package discount

import (
	"sort"
	"time"
)

// Applicable filters to coupons that pass local validation for this cart
// and that the backend marked usable for this customer. Both checks must
// hold: a locally valid coupon the backend withholds is not offered.
func Applicable(coupons []Coupon, cartTotal int64, now time.Time) []Coupon {
	out := make([]Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.CanUse && ValidateAt(c, cartTotal, now).Valid {
			out = append(out, c)
		}
	}
	return out
}

// SortByDiscount orders coupons by computed discount, largest first. The
// sort is stable, so coupons granting the same amount keep the backend's
// order and Best stays deterministic.
func SortByDiscount(coupons []Coupon, cartTotal int64, now time.Time) []Coupon {
	sorted := append([]Coupon(nil), coupons...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return AmountAt(sorted[i], cartTotal, now) > AmountAt(sorted[j], cartTotal, now)
	})
	return sorted
}

// Best returns the applicable coupon granting the largest discount, or
// nil when none applies. Ties go to the earliest in the backend's order.
func Best(coupons []Coupon, cartTotal int64, now time.Time) *Coupon {
	ranked := SortByDiscount(Applicable(coupons, cartTotal, now), cartTotal, now)
	if len(ranked) == 0 {
		return nil
	}
	best := ranked[0]
	return &best
}

// FindByCode locates a coupon by its normalized code.
func FindByCode(coupons []Coupon, code string) *Coupon {
	want := NormalizeCode(code)
	for _, c := range coupons {
		if NormalizeCode(c.Code) == want {
			found := c
			return &found
		}
	}
	return nil
}

package discount

import (
	"fmt"
	"time"

	"github.com/phovu7426/truyentranh/internal/model"
)

// Validate checks a coupon against the cart total at the current time.
func Validate(c Coupon, cartTotal int64) Validation {
	return ValidateAt(c, cartTotal, time.Now())
}

// ValidateAt runs the eligibility guards in a fixed order and
// short-circuits on the first failure, so a coupon that is both expired
// and under the minimum always reports expired. The order is part of the
// client contract.
func ValidateAt(c Coupon, cartTotal int64, now time.Time) Validation {
	if !c.IsActive {
		return invalid(CodeInactive, "this coupon is not active")
	}
	if c.StartDate != nil && !c.StartDate.IsZero() && now.Before(c.StartDate.Time) {
		return invalid(CodeNotStarted, "this coupon is not valid yet")
	}
	if c.EndDate != nil && !c.EndDate.IsZero() && now.After(c.EndDate.Time) {
		return invalid(CodeExpired, "this coupon has expired")
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return invalid(CodeUsageLimitReached, "this coupon has reached its usage limit")
	}
	// The backend reuses usage_limit as the per-customer cap too, so the
	// same limit bounds both counters.
	if c.UsageLimit > 0 && c.UserUsedCount >= c.UsageLimit {
		return invalid(CodeUsageLimitReached, "you have used this coupon the maximum number of times")
	}
	if c.MinOrderAmount > 0 && cartTotal < c.MinOrderAmount {
		return invalid(CodeMinOrderNotMet,
			fmt.Sprintf("order total must be at least %s", model.FormatVND(c.MinOrderAmount)))
	}
	return Validation{Valid: true}
}

func invalid(code, message string) Validation {
	return Validation{Code: code, Message: message}
}

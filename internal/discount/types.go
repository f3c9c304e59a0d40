// Package discount implements coupon validation, discount calculation,
// and coupon ranking for the storefront. Amounts are whole VND carried
// as int64; percentage math runs on decimals and rounds once at the end.
package discount

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates the backend's coupon kinds.
type DiscountType string

const (
	TypePercentage  DiscountType = "percentage"
	TypeFixedAmount DiscountType = "fixed_amount"
	TypeShipping    DiscountType = "shipping"
	TypeBuyXGetY    DiscountType = "buy_x_get_y"
)

// Validation failure codes. These are a stable contract with clients:
// renderers key message lookup and styling off them.
const (
	CodeInactive          = "COUPON_INACTIVE"
	CodeNotStarted        = "INVALID_COUPON"
	CodeExpired           = "COUPON_EXPIRED"
	CodeUsageLimitReached = "USAGE_LIMIT_EXCEEDED"
	CodeMinOrderNotMet    = "MINIMUM_ORDER_NOT_MET"
	CodeNotFound          = "COUPON_NOT_FOUND"
)

// Coupon is a discount coupon as the backend reports it.
type Coupon struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	DiscountType DiscountType    `json:"discount_type"`
	// DiscountValue is a percentage for percentage coupons and a VND
	// amount for fixed_amount coupons.
	DiscountValue decimal.Decimal `json:"discount_value"`
	// MinOrderAmount is the cart total required before the coupon
	// applies. Zero means no minimum.
	MinOrderAmount int64 `json:"minimum_order_amount"`
	// MaxDiscountAmount caps the computed discount. Zero means no cap.
	MaxDiscountAmount int64 `json:"maximum_discount_amount"`
	// UsageLimit caps both total redemptions and, as the backend reuses
	// the same field, redemptions by a single customer. Zero means
	// unlimited.
	UsageLimit int64 `json:"usage_limit"`
	UsedCount  int64 `json:"usage_count"`
	// UserUsedCount is how many times the current customer has redeemed
	// this coupon.
	UserUsedCount int64 `json:"user_usage_count"`
	StartDate  *Date `json:"start_date"`
	EndDate    *Date `json:"end_date"`
	IsActive   bool  `json:"is_active"`
	// CanUse is the backend's per-customer eligibility verdict,
	// covering rules the gateway cannot evaluate locally.
	CanUse bool `json:"can_use"`
}

// Validation is the outcome of checking one coupon against a cart.
type Validation struct {
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// AppliedCoupon is a coupon attached to a cart, with its computed
// discount frozen at application time.
type AppliedCoupon struct {
	Coupon         Coupon `json:"coupon"`
	DiscountAmount int64  `json:"discount_amount"`
}

// Date is a coupon validity boundary. The backend is inconsistent about
// the wire format, so both plain dates and RFC 3339 timestamps are
// accepted.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("coupon date must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized coupon date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// NormalizeCode canonicalizes a coupon code for comparison and for
// sending to the backend.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

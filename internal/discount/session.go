package discount

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phovu7426/truyentranh/internal/backend"
	"github.com/phovu7426/truyentranh/internal/model"
)

// API is the slice of the backend client the session needs.
// *backend.Client satisfies this.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
	PostStatus(ctx context.Context, path string, payload any) (*model.StatusEnvelope, error)
}

// Session tracks one cart's discount state: the available coupons as
// last fetched and the coupon currently applied. Carts are identified to
// the backend by a generated ID so anonymous customers keep their
// discount across requests. Safe for concurrent use.
type Session struct {
	api API

	mu        sync.Mutex
	cartID    string
	available []Coupon
	applied   *AppliedCoupon
}

// NewSession creates a discount session with a fresh cart ID.
func NewSession(api API) *Session {
	return &Session{
		api:    api,
		cartID: uuid.NewString(),
	}
}

// CartID returns the session's cart identifier.
func (s *Session) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// Applied returns the currently applied coupon, or nil.
func (s *Session) Applied() *AppliedCoupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil
	}
	applied := *s.applied
	return &applied
}

// Available returns the coupons from the last FetchAvailable call.
func (s *Session) Available() []Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Coupon(nil), s.available...)
}

// FetchAvailable pulls the coupons the backend offers this cart and
// caches them on the session.
func (s *Session) FetchAvailable(ctx context.Context, cartTotal int64) ([]Coupon, error) {
	query := url.Values{}
	query.Set("cart_total", strconv.FormatInt(cartTotal, 10))

	var resp struct {
		Data []Coupon `json:"data"`
	}
	if err := s.api.GetJSON(ctx, backend.PathDiscountsAvailable, query, &resp); err != nil {
		return nil, fmt.Errorf("fetching available coupons: %w", err)
	}

	s.mu.Lock()
	s.available = resp.Data
	s.mu.Unlock()
	return resp.Data, nil
}

// applyRequest is the payload for the coupon verb endpoints.
type applyRequest struct {
	CartID    string `json:"cart_id"`
	Code      string `json:"code,omitempty"`
	CartTotal int64  `json:"cart_total"`
}

// ValidateRemote asks the backend to validate a code against this cart.
// The backend enforces per-customer rules the gateway cannot see, so a
// locally valid coupon can still fail here.
func (s *Session) ValidateRemote(ctx context.Context, code string, cartTotal int64) (*Validation, error) {
	env, err := s.api.PostStatus(ctx, backend.PathDiscountsValidate, applyRequest{
		CartID:    s.CartID(),
		Code:      NormalizeCode(code),
		CartTotal: cartTotal,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return &Validation{Code: envelopeCode(env), Message: env.Message}, nil
	}
	return &Validation{Valid: true}, nil
}

// Apply attaches a coupon to the cart. Local validation runs first so
// obviously ineligible coupons never reach the backend; the backend
// confirms and the session records the applied coupon with its discount
// frozen at today's cart total.
func (s *Session) Apply(ctx context.Context, coupon Coupon, cartTotal int64) (*AppliedCoupon, error) {
	if v := ValidateAt(coupon, cartTotal, time.Now()); !v.Valid {
		return nil, model.NewValidationError("coupon", v.Message)
	}

	env, err := s.api.PostStatus(ctx, backend.PathDiscountsApply, applyRequest{
		CartID:    s.CartID(),
		Code:      NormalizeCode(coupon.Code),
		CartTotal: cartTotal,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewValidationError("coupon", envelopeMessage(env))
	}

	applied := &AppliedCoupon{
		Coupon:         coupon,
		DiscountAmount: Amount(coupon, cartTotal),
	}
	s.mu.Lock()
	s.applied = applied
	s.mu.Unlock()

	result := *applied
	return &result, nil
}

// Remove detaches the applied coupon from the cart. Removing when
// nothing is applied is a no-op.
func (s *Session) Remove(ctx context.Context) error {
	s.mu.Lock()
	applied := s.applied
	s.mu.Unlock()
	if applied == nil {
		return nil
	}

	env, err := s.api.PostStatus(ctx, backend.PathDiscountsRemove, applyRequest{
		CartID: s.CartID(),
	})
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewValidationError("coupon", envelopeMessage(env))
	}

	s.mu.Lock()
	s.applied = nil
	s.mu.Unlock()
	return nil
}

// Reset abandons the cart: new cart ID, no applied coupon, no cached
// availability. Used when the customer completes or clears an order.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartID = uuid.NewString()
	s.applied = nil
	s.available = nil
}

func envelopeCode(env *model.StatusEnvelope) string {
	if env.Code != "" {
		return env.Code
	}
	return CodeNotFound
}

func envelopeMessage(env *model.StatusEnvelope) string {
	if env.Message != "" {
		return env.Message
	}
	return "coupon was rejected"
}

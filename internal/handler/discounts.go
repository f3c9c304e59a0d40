package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phovu7426/truyentranh/internal/discount"
	"github.com/phovu7426/truyentranh/internal/model"
)

// cartIDHeader carries the cart identifier between requests. The first
// discount request mints a cart; clients echo the header afterwards.
const cartIDHeader = "X-Cart-ID"

// Carts idle longer than sessionTTL are dropped; maxSessions bounds the
// store against anonymous traffic minting carts it never revisits.
const (
	sessionTTL  = 30 * time.Minute
	maxSessions = 10000
)

type sessionEntry struct {
	sess     *discount.Session
	lastSeen time.Time
}

// sessionStore tracks discount sessions by cart ID.
type sessionStore struct {
	api discount.API
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func newSessionStore(api discount.API) *sessionStore {
	return &sessionStore{
		api:      api,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// get returns the session for the cart ID, creating a fresh cart when
// the ID is empty, unknown, or idle past the TTL.
func (s *sessionStore) get(cartID string) *discount.Session {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[cartID]; ok && now.Sub(e.lastSeen) < sessionTTL {
		e.lastSeen = now
		return e.sess
	}
	s.evict(now)
	sess := discount.NewSession(s.api)
	s.sessions[sess.CartID()] = &sessionEntry{sess: sess, lastSeen: now}
	return sess
}

// evict drops idle carts, then the stalest ones while still at capacity.
func (s *sessionStore) evict(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) >= sessionTTL {
			delete(s.sessions, id)
		}
	}
	for len(s.sessions) >= maxSessions {
		var oldestID string
		var oldest time.Time
		for id, e := range s.sessions {
			if oldestID == "" || e.lastSeen.Before(oldest) {
				oldestID, oldest = id, e.lastSeen
			}
		}
		delete(s.sessions, oldestID)
	}
}

// session resolves the request's discount session and echoes the cart ID
// on the response.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *discount.Session {
	sess := h.sessions.get(r.Header.Get(cartIDHeader))
	w.Header().Set(cartIDHeader, sess.CartID())
	return sess
}

// couponView is a coupon annotated with its verdict for this cart.
type couponView struct {
	Coupon         discount.Coupon     `json:"coupon"`
	Validation     discount.Validation `json:"validation"`
	DiscountAmount int64               `json:"discount_amount"`
	FinalAmount    int64               `json:"final_amount"`
	Formatted      string              `json:"formatted_discount"`
}

func newCouponView(c discount.Coupon, cartTotal int64, now time.Time) couponView {
	amount := discount.AmountAt(c, cartTotal, now)
	return couponView{
		Coupon:         c,
		Validation:     discount.ValidateAt(c, cartTotal, now),
		DiscountAmount: amount,
		FinalAmount:    discount.FinalAmountAt(c, cartTotal, now),
		Formatted:      model.FormatVND(amount),
	}
}

// handleAvailable lists the coupons offered for this cart, each with its
// local validation verdict and computed discount.
func (h *Handler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	cartTotal, err := cartTotalParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sess := h.session(w, r)
	coupons, err := sess.FetchAvailable(r.Context(), cartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}

	now := time.Now()
	views := make([]couponView, len(coupons))
	for i, c := range coupons {
		views[i] = newCouponView(c, cartTotal, now)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// handleBest returns the applicable coupon granting the largest
// discount, or 404 when none applies.
func (h *Handler) handleBest(w http.ResponseWriter, r *http.Request) {
	cartTotal, err := cartTotalParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sess := h.session(w, r)
	coupons, err := sess.FetchAvailable(r.Context(), cartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}

	now := time.Now()
	best := discount.Best(coupons, cartTotal, now)
	if best == nil {
		h.writeError(w, model.NewNotFoundError("applicable coupon"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": newCouponView(*best, cartTotal, now)})
}

type codeRequest struct {
	Code      string `json:"code"`
	CartTotal int64  `json:"cart_total"`
}

// handleValidate checks a code for this cart: local guards first, then
// the backend's per-customer rules. Unknown codes are 404 with the
// stable COUPON_NOT_FOUND code.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Code == "" {
		h.writeError(w, model.NewValidationError("code", "coupon code required"))
		return
	}

	sess := h.session(w, r)
	coupon, err := h.findCoupon(r, sess, req.Code, req.CartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if v := discount.Validate(*coupon, req.CartTotal); !v.Valid {
		h.writeJSON(w, http.StatusOK, map[string]any{"data": v})
		return
	}
	v, err := sess.ValidateRemote(r.Context(), req.Code, req.CartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": v})
}

// handleApply attaches a coupon to the cart.
func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Code == "" {
		h.writeError(w, model.NewValidationError("code", "coupon code required"))
		return
	}

	sess := h.session(w, r)
	coupon, err := h.findCoupon(r, sess, req.Code, req.CartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}

	applied, err := sess.Apply(r.Context(), *coupon, req.CartTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": applied})
}

// handleRemove detaches the cart's applied coupon.
func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if err := sess.Remove(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// handleCart reports the cart's discount state.
func (h *Handler) handleCart(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"cart_id": sess.CartID(),
		"applied": sess.Applied(),
	})
}

// findCoupon resolves a code against the cart's available coupons,
// fetching them if this session has none cached.
func (h *Handler) findCoupon(r *http.Request, sess *discount.Session, code string, cartTotal int64) (*discount.Coupon, error) {
	coupons := sess.Available()
	if len(coupons) == 0 {
		var err error
		coupons, err = sess.FetchAvailable(r.Context(), cartTotal)
		if err != nil {
			return nil, err
		}
	}
	coupon := discount.FindByCode(coupons, code)
	if coupon == nil {
		return nil, &model.APIError{
			Code:       discount.CodeNotFound,
			Message:    "coupon code not recognized",
			StatusCode: http.StatusNotFound,
			Err:        model.ErrNotFound,
		}
	}
	return coupon, nil
}

func cartTotalParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("cart_total")
	if raw == "" {
		return 0, model.NewValidationError("cart_total", "cart_total query parameter required")
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || total < 0 {
		return 0, model.NewValidationError("cart_total", "must be a non-negative integer")
	}
	return total, nil
}

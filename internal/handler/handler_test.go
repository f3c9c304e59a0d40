package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phovu7426/truyentranh/internal/backend"
	"github.com/phovu7426/truyentranh/internal/config"
	"github.com/phovu7426/truyentranh/internal/middleware"
)

var testSecret = []byte("test-secret")

// newFakeBackend fakes the storefront backend API.
func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/admin/products", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"data":[{"id":1,"name":"vol 1"},{"id":2,"name":"vol 2"}],"meta":{"current_page":1,"last_page":3,"per_page":2,"total":6}}}`))
	})
	mux.HandleFunc("POST /api/admin/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":9,"name":"created"}}`))
	})
	mux.HandleFunc("DELETE /api/admin/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	})
	mux.HandleFunc("GET /api/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":100}]}`))
	})

	mux.HandleFunc("GET /api/public/discounts/available", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":1,"code":"SUMMER10","name":"Summer","discount_type":"percentage","discount_value":"10","minimum_order_amount":200000,"is_active":true,"can_use":true},
			{"id":2,"code":"FLAT50","name":"Flat","discount_type":"fixed_amount","discount_value":"50000","is_active":true,"can_use":true},
			{"id":3,"code":"VIP","name":"VIP only","discount_type":"percentage","discount_value":"30","is_active":true,"can_use":false},
			{"id":4,"code":"OLD20","name":"Expired","discount_type":"fixed_amount","discount_value":"20000","end_date":"2020-01-01","is_active":true,"can_use":true}
		]}`))
	})
	statusOK := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}
	mux.HandleFunc("POST /api/public/discounts/validate", statusOK)
	mux.HandleFunc("POST /api/public/discounts/apply", statusOK)
	mux.HandleFunc("POST /api/public/discounts/remove", statusOK)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	fake := newFakeBackend(t)
	client, err := backend.New(backend.Config{BaseURL: fake.URL})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	resources := []config.ResourceConfig{
		{Name: "products", Create: true, Update: true, Delete: true},
		{Name: "orders"},
	}
	logger := slog.New(slog.NewTextHandler(new(strings.Builder), nil))
	return New(client, resources, testSecret, logger)
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, h *Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func adminHeaders(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminToken(t)}
}

func TestAdminList(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/admin/products?page=1&limit=2", "", adminHeaders(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		State string `json:"state"`
		Data  []struct {
			Serial int             `json:"serial"`
			Item   json.RawMessage `json:"item"`
		} `json:"data"`
		Meta *struct {
			TotalPages int `json:"totalPages"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.State != "ready" {
		t.Errorf("state = %q", resp.State)
	}
	if len(resp.Data) != 2 || resp.Data[0].Serial != 1 || resp.Data[1].Serial != 2 {
		t.Errorf("rows = %+v", resp.Data)
	}
	if resp.Meta == nil || resp.Meta.TotalPages != 3 {
		t.Errorf("meta = %+v", resp.Meta)
	}
}

func TestAdminListRequiresAuth(t *testing.T) {
	h := newTestHandler(t)
	if rec := doRequest(t, h, http.MethodGet, "/admin/products", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAdminCreateAndDelete(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/admin/products", `{"name":"created"}`, adminHeaders(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"id":9`) {
		t.Errorf("create body = %s", rec.Body)
	}

	rec = doRequest(t, h, http.MethodDelete, "/admin/products/2", "", adminHeaders(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}
}

func TestAdminDisabledOperation(t *testing.T) {
	h := newTestHandler(t)
	// Orders are configured read-only.
	rec := doRequest(t, h, http.MethodPost, "/admin/orders", `{"total":1}`, adminHeaders(t))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "OPERATION_DISABLED") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestAdminUnknownResource(t *testing.T) {
	h := newTestHandler(t)
	if rec := doRequest(t, h, http.MethodGet, "/admin/warehouses", "", adminHeaders(t)); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDiscountsAvailable(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/discounts/available?cart_total=250000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Cart-ID") == "" {
		t.Error("no cart id issued")
	}

	var resp struct {
		Data []struct {
			Coupon struct {
				Code string `json:"code"`
			} `json:"coupon"`
			Validation struct {
				Valid bool `json:"valid"`
			} `json:"validation"`
			DiscountAmount int64 `json:"discount_amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Data) != 4 {
		t.Fatalf("coupons = %d, want 4", len(resp.Data))
	}
	if !resp.Data[0].Validation.Valid || resp.Data[0].DiscountAmount != 25000 {
		t.Errorf("SUMMER10 view = %+v", resp.Data[0])
	}
}

// A coupon failing validation is listed with its verdict and a zero
// discount, never a reduced final amount.
func TestDiscountsAvailableInvalidCouponGrantsNothing(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/discounts/available?cart_total=300000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Data []struct {
			Coupon struct {
				Code string `json:"code"`
			} `json:"coupon"`
			Validation struct {
				Valid bool   `json:"valid"`
				Code  string `json:"code"`
			} `json:"validation"`
			DiscountAmount int64 `json:"discount_amount"`
			FinalAmount    int64 `json:"final_amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	found := false
	for _, view := range resp.Data {
		if view.Coupon.Code != "OLD20" {
			continue
		}
		found = true
		if view.Validation.Valid || view.Validation.Code != "COUPON_EXPIRED" {
			t.Errorf("validation = %+v", view.Validation)
		}
		if view.DiscountAmount != 0 {
			t.Errorf("DiscountAmount = %d, want 0", view.DiscountAmount)
		}
		if view.FinalAmount != 300000 {
			t.Errorf("FinalAmount = %d, want 300000", view.FinalAmount)
		}
	}
	if !found {
		t.Fatal("OLD20 missing from available coupons")
	}
}

func TestDiscountsBest(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/discounts/best?cart_total=250000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	// FLAT50 (50,000) beats SUMMER10 (25,000); VIP is withheld by the
	// backend despite the biggest nominal discount.
	if !strings.Contains(rec.Body.String(), `"code":"FLAT50"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestDiscountsApplyFlow(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/discounts/apply",
		`{"code":"summer10","cart_total":250000}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d: %s", rec.Code, rec.Body)
	}
	cartID := rec.Header().Get("X-Cart-ID")
	if cartID == "" {
		t.Fatal("no cart id issued")
	}
	if !strings.Contains(rec.Body.String(), `"discount_amount":25000`) {
		t.Errorf("apply body = %s", rec.Body)
	}

	// Same cart sees the applied coupon.
	rec = doRequest(t, h, http.MethodGet, "/discounts/cart", "", map[string]string{"X-Cart-ID": cartID})
	if !strings.Contains(rec.Body.String(), `"SUMMER10"`) {
		t.Errorf("cart body = %s", rec.Body)
	}

	// A different cart does not.
	rec = doRequest(t, h, http.MethodGet, "/discounts/cart", "", nil)
	if !strings.Contains(rec.Body.String(), `"applied":null`) {
		t.Errorf("fresh cart body = %s", rec.Body)
	}

	// Remove clears it.
	rec = doRequest(t, h, http.MethodPost, "/discounts/remove", "", map[string]string{"X-Cart-ID": cartID})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/discounts/cart", "", map[string]string{"X-Cart-ID": cartID})
	if !strings.Contains(rec.Body.String(), `"applied":null`) {
		t.Errorf("cart after remove = %s", rec.Body)
	}
}

func TestDiscountsApplyBelowMinimum(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/discounts/apply",
		`{"code":"SUMMER10","cart_total":100000}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestDiscountsUnknownCode(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/discounts/validate",
		`{"code":"NOPE","cart_total":250000}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "COUPON_NOT_FOUND") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestDiscountsCartTotalValidation(t *testing.T) {
	h := newTestHandler(t)
	for _, path := range []string{"/discounts/available", "/discounts/available?cart_total=-5", "/discounts/available?cart_total=abc"} {
		if rec := doRequest(t, h, http.MethodGet, path, "", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestSessionStoreEvictsIdleCarts(t *testing.T) {
	store := newSessionStore(nil)
	base := time.Now()
	now := base
	store.now = func() time.Time { return now }

	first := store.get("")
	if store.get(first.CartID()) != first {
		t.Fatal("live cart not reused")
	}
	store.get("") // an unrelated cart that will go idle

	now = base.Add(sessionTTL + time.Minute)
	if store.get(first.CartID()) == first {
		t.Error("idle cart survived the TTL")
	}

	// Both idle carts were dropped when the new one was minted.
	store.mu.Lock()
	n := len(store.sessions)
	store.mu.Unlock()
	if n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

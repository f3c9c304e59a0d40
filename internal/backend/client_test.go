package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/phovu7426/truyentranh/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "admin-token"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestList(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/products" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer admin-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":[{"id":1},{"id":2}],"meta":{"current_page":2,"last_page":5,"per_page":2,"total":9}}}`))
	})

	query := url.Values{"page": {"2"}}
	page, err := c.List(context.Background(), AdminEndpoints("products").Collection, query)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.Items[0].ID != "1" {
		t.Errorf("first id = %q, want 1", page.Items[0].ID)
	}
	if page.Meta == nil || page.Meta.TotalPages != 5 {
		t.Errorf("meta = %+v, want total pages 5", page.Meta)
	}
}

func TestCreateItem(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if payload["name"] != "One Piece Vol. 1" {
			t.Errorf("payload name = %v", payload["name"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":42,"name":"One Piece Vol. 1"}}`))
	})

	created, err := c.CreateItem(context.Background(),
		AdminEndpoints("products").Collection,
		json.RawMessage(`{"name":"One Piece Vol. 1"}`))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if created.ID != "42" {
		t.Errorf("created id = %q, want 42", created.ID)
	}
}

func TestDeleteItem(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q", r.Method)
		}
		w.Write([]byte(`{"data":null}`))
	})

	if err := c.DeleteItem(context.Background(), AdminEndpoints("products").Detail("7")); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if gotPath != "/api/admin/products/7" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantInMsg  string
		wantStatus int
	}{
		{
			name:       "not found",
			status:     404,
			body:       `{"message":"no such product"}`,
			wantErr:    model.ErrNotFound,
			wantStatus: 404,
		},
		{
			name:       "validation with backend message",
			status:     422,
			body:       `{"message":"name is required"}`,
			wantErr:    model.ErrInvalidRequest,
			wantInMsg:  "name is required",
			wantStatus: 400,
		},
		{
			name:       "unauthorized",
			status:     401,
			body:       `{}`,
			wantErr:    model.ErrUnauthorized,
			wantStatus: 401,
		},
		{
			name:       "forbidden",
			status:     403,
			body:       `{}`,
			wantErr:    model.ErrForbidden,
			wantStatus: 403,
		},
		{
			name:       "upstream failure",
			status:     502,
			body:       `{"code":"bad_gateway","message":"upstream exploded"}`,
			wantErr:    model.ErrUpstreamError,
			wantInMsg:  "upstream exploded",
			wantStatus: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.List(context.Background(), "/api/admin/products", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err %v is not an *APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if tt.wantInMsg != "" && !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Errorf("err %q does not mention %q", err, tt.wantInMsg)
			}
		})
	}
}

func TestRateLimitRetryHint(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "structured RateLimit field",
			headers: map[string]string{"RateLimit": "limit=100, remaining=0, reset=30"},
			want:    "retry after 30s",
		},
		{
			name:    "Retry-After fallback",
			headers: map[string]string{"Retry-After": "45"},
			want:    "retry after 45s",
		},
		{
			name:    "no hint",
			headers: nil,
			want:    "rate limit exceeded, please retry later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(http.StatusTooManyRequests)
			})

			_, err := c.List(context.Background(), "/api/admin/products", nil)
			if !errors.Is(err, model.ErrRateLimited) {
				t.Fatalf("err = %v, want rate limited", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCheckVersion(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathVersion {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"version":"1.4.2","commit":"abc123"}`))
	})

	info, err := c.CheckVersion(context.Background(), "1.2.0")
	if err != nil {
		t.Fatalf("CheckVersion: %v", err)
	}
	if info.Version != "1.4.2" {
		t.Errorf("version = %q", info.Version)
	}

	if _, err := c.CheckVersion(context.Background(), "2.0.0"); err == nil {
		t.Error("CheckVersion accepted a backend below minimum")
	}
}

func TestEndpoints(t *testing.T) {
	ep := AdminEndpoints("coupons")
	if ep.Collection != "/api/admin/coupons" {
		t.Errorf("collection = %q", ep.Collection)
	}
	if got := ep.Detail("17"); got != "/api/admin/coupons/17" {
		t.Errorf("detail = %q", got)
	}
	if got := PublicEndpoints("products").Collection; got != "/api/public/products" {
		t.Errorf("public collection = %q", got)
	}
}

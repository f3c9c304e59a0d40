// Package backend is the REST client for the storefront API. It speaks
// the backend's two response envelopes (flat and nested), carries bearer
// authentication, and maps upstream failures onto the shared error
// taxonomy in internal/model.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"

	"github.com/phovu7426/truyentranh/internal/model"
	"github.com/phovu7426/truyentranh/internal/transport"
)

// userAgent identifies this gateway to the backend. The backend's CDN
// rate-limits requests without a User-Agent.
const userAgent = "Storefront-Gateway/1.0"

// Config holds backend connection settings.
type Config struct {
	// BaseURL is the backend origin, e.g. https://api.shop.example.com.
	BaseURL string

	// Token is the bearer token sent on admin requests. Optional for
	// deployments that only use public endpoints.
	Token string

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration

	// BrowserTLS enables the Chrome TLS fingerprint transport. Needed
	// when the backend sits behind a CDN that scores TLS fingerprints.
	BrowserTLS bool
}

// Client is a storefront backend API client. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New creates a backend client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.BrowserTLS {
		// See internal/transport for rationale.
		httpClient.Transport = transport.NewChromeTransport(timeout)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}, nil
}

// List fetches a resource collection. The query values are forwarded to
// the backend verbatim; both envelope shapes are accepted. A response
// without pagination metadata yields a page with a nil Meta, which the
// caller treats as "keep what you had".
func (c *Client) List(ctx context.Context, path string, query url.Values) (*model.ListPage, error) {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	page, err := model.DecodeList(body)
	if err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}
	return page, nil
}

// GetItem fetches one record by detail path.
func (c *Client) GetItem(ctx context.Context, path string) (model.Resource, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return model.Resource{}, err
	}
	return decodeItemBody(body)
}

// CreateItem POSTs a new record and returns the created resource as the
// backend reports it, server-assigned ID included.
func (c *Client) CreateItem(ctx context.Context, path string, payload json.RawMessage) (model.Resource, error) {
	body, err := c.do(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return model.Resource{}, err
	}
	return decodeItemBody(body)
}

// UpdateItem PUTs a full replacement of one record and returns the
// updated resource.
func (c *Client) UpdateItem(ctx context.Context, path string, payload json.RawMessage) (model.Resource, error) {
	body, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return model.Resource{}, err
	}
	return decodeItemBody(body)
}

// DeleteItem removes one record. The response body is discarded; only
// the status matters.
func (c *Client) DeleteItem(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// PostStatus POSTs a payload to a verb-style endpoint and decodes the
// backend's status envelope. Used by the discount flows, where the
// backend reports success/failure in-band rather than via HTTP status.
func (c *Client) PostStatus(ctx context.Context, path string, payload any) (*model.StatusEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, path, nil, raw)
	if err != nil {
		return nil, err
	}
	var env model.StatusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return &env, nil
}

// GetJSON fetches a path and unmarshals the response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeItemBody(body []byte) (model.Resource, error) {
	res, err := model.DecodeItem(body)
	if err != nil {
		return model.Resource{}, fmt.Errorf("decoding item response: %w", err)
	}
	return res, nil
}

// do executes one request and returns the raw response body. Statuses
// >= 400 are converted to *model.APIError via parseErrorResponse.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload json.RawMessage) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("backend", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.parseErrorResponse(resp.StatusCode, resp.Header, respBody)
	}
	return respBody, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// errorBody is the backend's error payload. Best-effort: the fields that
// are present get surfaced, the rest default.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (e errorBody) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// parseErrorResponse converts a backend error response to an APIError.
func (c *Client) parseErrorResponse(statusCode int, header http.Header, body []byte) error {
	var backendErr errorBody
	json.Unmarshal(body, &backendErr) // Best effort parse

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError("resource")
	case http.StatusUnauthorized:
		return model.NewUnauthorizedError("backend authentication failed")
	case http.StatusForbidden:
		return model.NewForbiddenError("backend rejected credentials")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		msg := backendErr.text()
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("backend", parseRetryAfter(header))
	default:
		return model.NewUpstreamError("backend",
			fmt.Errorf("status %d: %s - %s", statusCode, backendErr.Code, backendErr.text()))
	}
}

// parseRetryAfter extracts a retry hint in seconds from a 429 response.
// Prefers the structured RateLimit field (draft-ietf-httpapi-ratelimit),
// falling back to a delta-seconds Retry-After. Returns 0 when neither
// parses.
func parseRetryAfter(header http.Header) int64 {
	if raw := header.Get("RateLimit"); raw != "" {
		dict, err := httpsfv.UnmarshalDictionary([]string{raw})
		if err == nil {
			if member, ok := dict.Get("reset"); ok {
				if item, ok := member.(httpsfv.Item); ok {
					if reset, ok := item.Value.(int64); ok && reset > 0 {
						return reset
					}
				}
			}
		}
	}
	if raw := header.Get("Retry-After"); raw != "" {
		var seconds int64
		if _, err := fmt.Sscanf(raw, "%d", &seconds); err == nil && seconds > 0 {
			return seconds
		}
	}
	return 0
}

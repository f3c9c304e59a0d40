// Package handler provides the gateway's HTTP API: an authenticated
// admin surface for list browsing and CRUD, and a public surface for
// cart discounts.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phovu7426/truyentranh/internal/backend"
	"github.com/phovu7426/truyentranh/internal/config"
	"github.com/phovu7426/truyentranh/internal/listsync"
	"github.com/phovu7426/truyentranh/internal/middleware"
	"github.com/phovu7426/truyentranh/internal/model"
)

// resourceView bundles the list controller and mutation overlay for one
// admin collection.
type resourceView struct {
	controller *listsync.Controller
	crud       *listsync.Crud
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	client    *backend.Client
	logger    *slog.Logger
	jwtSecret []byte
	resources map[string]*resourceView
	sessions  *sessionStore
}

// New creates a Handler exposing the configured resources over the
// given backend client.
func New(client *backend.Client, resources []config.ResourceConfig, jwtSecret []byte, logger *slog.Logger) *Handler {
	h := &Handler{
		client:    client,
		logger:    logger,
		jwtSecret: jwtSecret,
		resources: make(map[string]*resourceView, len(resources)),
		sessions:  newSessionStore(client),
	}
	for _, rc := range resources {
		endpoints := backend.AdminEndpoints(rc.Name)
		controller := listsync.NewController(client, endpoints.Collection)
		h.resources[rc.Name] = &resourceView{
			controller: controller,
			crud: listsync.NewCrud(client, endpoints, controller, listsync.Operations{
				Create: rc.Create,
				Update: rc.Update,
				Delete: rc.Delete,
			}),
		}
	}
	return h
}

// Router builds the route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(h.jwtSecret))
		r.Route("/{resource}", func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Get("/{id}", h.handleGet)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})

	r.Route("/discounts", func(r chi.Router) {
		r.Get("/available", h.handleAvailable)
		r.Get("/best", h.handleBest)
		r.Post("/validate", h.handleValidate)
		r.Post("/apply", h.handleApply)
		r.Post("/remove", h.handleRemove)
		r.Get("/cart", h.handleCart)
	})

	r.Mount("/mcp", h.NewMCPHandler())

	r.Get("/health", h.handleHealth)
	r.Get("/healthz", h.handleHealth)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookupResource resolves the {resource} URL segment. Unknown resources
// are a 404, not an error from the backend.
func (h *Handler) lookupResource(r *http.Request) (*resourceView, error) {
	name := chi.URLParam(r, "resource")
	view, ok := h.resources[name]
	if !ok {
		return nil, model.NewNotFoundError("resource " + name)
	}
	return view, nil
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from
// APIError if present. Uses errors.As() to unwrap error chains.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	switch {
	case errors.As(err, &apiErr):
		// Found APIError in error chain - use it
	case errors.Is(err, listsync.ErrOperationDisabled):
		apiErr = &model.APIError{
			Code:       "OPERATION_DISABLED",
			Message:    err.Error(),
			StatusCode: http.StatusMethodNotAllowed,
		}
	default:
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

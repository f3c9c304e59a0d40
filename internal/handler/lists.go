package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phovu7426/truyentranh/internal/model"
)

// listResponse is one synchronized page of an admin collection.
type listResponse struct {
	State string                `json:"state"`
	Query string                `json:"query"`
	Data  []listRow             `json:"data"`
	Meta  *model.PaginationMeta `json:"meta,omitempty"`
}

// listRow pairs a record with its ordinal across the whole collection,
// so page 3 of 10-per-page renders rows 21 through 30.
type listRow struct {
	Serial int             `json:"serial"`
	Item   json.RawMessage `json:"item"`
}

// handleList synchronizes the controller with the request's query string
// and returns the resulting page. A backend failure still renders the
// last good page, with state "failed" and the error attached.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	view, err := h.lookupResource(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	fetchErr := view.controller.OnQueryChange(r.Context(), r.URL.Query())
	snap := view.controller.Snapshot()

	resp := listResponse{
		State: snap.State.String(),
		Query: snap.Query.Encode(),
		Data:  make([]listRow, len(snap.Items)),
		Meta:  snap.Meta,
	}
	for i, item := range snap.Items {
		resp.Data[i] = listRow{
			Serial: view.controller.SerialNumber(i),
			Item:   item.Raw,
		}
	}

	if fetchErr != nil && len(snap.Items) == 0 {
		// Nothing stale to show; surface the failure as an error.
		h.writeError(w, fetchErr)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.lookupResource(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	item, err := view.crud.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, itemResponse{Data: item.Raw})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	view, err := h.lookupResource(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload, err := readPayload(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := view.crud.Create(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, itemResponse{Data: created.Raw})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	view, err := h.lookupResource(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload, err := readPayload(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	updated, err := view.crud.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, itemResponse{Data: updated.Raw})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	view, err := h.lookupResource(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := view.crud.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// itemResponse wraps a single record.
type itemResponse struct {
	Data json.RawMessage `json:"data"`
}

// readPayload reads the request body as a raw JSON object for
// passthrough to the backend.
func readPayload(r *http.Request) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := decodeJSON(r, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, model.NewValidationError("body", "request body required")
	}
	return payload, nil
}

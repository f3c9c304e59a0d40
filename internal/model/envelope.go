package model

import (
	"encoding/json"
	"fmt"
)

// The backend wraps payloads in envelopes, and not consistently: list
// responses arrive as {data:[...], meta:{...}} or nested as
// {data:{data:[...], meta:{...}}}, and mutation responses as {data:{...}}
// or {data:{data:{...}}}. Rather than shape-sniffing at every call site,
// the decoders below try the accepted shapes in one fixed priority order
// (nested first) and are the only place envelope unwrapping happens.

// PaginationMeta describes the server's pagination envelope. Derived state:
// it is always overwritten by the response meta when present and retained
// otherwise.
type PaginationMeta struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
}

// UnmarshalJSON accepts both naming conventions the backend uses:
// page/current_page, totalPages/last_page, limit/per_page, totalItems/total.
func (m *PaginationMeta) UnmarshalJSON(b []byte) error {
	var raw struct {
		Page        *int `json:"page"`
		CurrentPage *int `json:"current_page"`
		TotalPages  *int `json:"totalPages"`
		LastPage    *int `json:"last_page"`
		Limit       *int `json:"limit"`
		PerPage     *int `json:"per_page"`
		TotalItems  *int `json:"totalItems"`
		Total       *int `json:"total"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	pick := func(a, b *int, fallback int) int {
		if a != nil {
			return *a
		}
		if b != nil {
			return *b
		}
		return fallback
	}
	m.Page = pick(raw.Page, raw.CurrentPage, m.Page)
	m.TotalPages = pick(raw.TotalPages, raw.LastPage, m.TotalPages)
	m.Limit = pick(raw.Limit, raw.PerPage, m.Limit)
	m.TotalItems = pick(raw.TotalItems, raw.Total, m.TotalItems)
	return nil
}

// ListPage is one fetch cycle's result: the records plus the server's
// pagination meta. Meta is nil when the response carried none.
type ListPage struct {
	Items []Resource
	Meta  *PaginationMeta
}

// DecodeList unwraps a list envelope. Shapes tried in priority order:
//
//  1. {data: {data: [...], meta: {...}}}
//  2. {data: [...], meta: {...}}   (also accepts "pagination" for "meta")
//
// A null/absent data field decodes as an empty page.
func DecodeList(body []byte) (*ListPage, error) {
	var outer struct {
		Data       json.RawMessage `json:"data"`
		Meta       json.RawMessage `json:"meta"`
		Pagination json.RawMessage `json:"pagination"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("parsing list envelope: %w", err)
	}

	items, meta, ok := decodeListLevel(outer.Data)
	if !ok {
		// flat shape: data is the array, meta sits beside it
		if len(outer.Data) > 0 && !isJSONNull(outer.Data) {
			if err := json.Unmarshal(outer.Data, &items); err != nil {
				return nil, fmt.Errorf("parsing list data: %w", err)
			}
		}
		metaRaw := outer.Meta
		if len(metaRaw) == 0 || isJSONNull(metaRaw) {
			metaRaw = outer.Pagination
		}
		meta = decodeMeta(metaRaw)
	}

	if items == nil {
		items = []Resource{}
	}
	return &ListPage{Items: items, Meta: meta}, nil
}

// decodeListLevel attempts the nested {data:[...], meta:{...}} shape.
func decodeListLevel(data json.RawMessage) ([]Resource, *PaginationMeta, bool) {
	if len(data) == 0 || isJSONNull(data) {
		return nil, nil, false
	}
	var inner struct {
		Data       json.RawMessage `json:"data"`
		Meta       json.RawMessage `json:"meta"`
		Pagination json.RawMessage `json:"pagination"`
	}
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, nil, false // data was an array, not an object
	}
	if len(inner.Data) == 0 || isJSONNull(inner.Data) {
		return nil, nil, false
	}
	var items []Resource
	if err := json.Unmarshal(inner.Data, &items); err != nil {
		return nil, nil, false
	}
	metaRaw := inner.Meta
	if len(metaRaw) == 0 || isJSONNull(metaRaw) {
		metaRaw = inner.Pagination
	}
	return items, decodeMeta(metaRaw), true
}

// DecodeItem unwraps a mutation envelope to the single affected record.
// Shapes tried in priority order: {data:{data:{...}}}, then {data:{...}}.
func DecodeItem(body []byte) (Resource, error) {
	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return Resource{}, fmt.Errorf("parsing item envelope: %w", err)
	}
	if len(outer.Data) == 0 || isJSONNull(outer.Data) {
		return Resource{}, fmt.Errorf("item envelope has no data")
	}

	// nested shape first
	var inner struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(outer.Data, &inner); err == nil &&
		len(inner.Data) > 0 && !isJSONNull(inner.Data) && isJSONObject(inner.Data) {
		return NewResource(inner.Data)
	}

	return NewResource(outer.Data)
}

// StatusEnvelope is the {success, message, data} wrapper used by the
// public discount endpoints. Data stays raw for the caller to decode.
type StatusEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func decodeMeta(raw json.RawMessage) *PaginationMeta {
	if len(raw) == 0 || isJSONNull(raw) {
		return nil
	}
	var m PaginationMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

func isJSONObject(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c == '{'
		}
	}
	return false
}

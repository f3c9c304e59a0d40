package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResourceID identifies a backend record. The backend emits ids as either
// JSON strings or numbers depending on the resource; both normalize to the
// decimal string form so ids compare with plain equality.
type ResourceID string

// UnmarshalJSON accepts both string and numeric id representations.
func (id *ResourceID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ResourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ResourceID(n.String())
		return nil
	}
	return fmt.Errorf("resource id must be string or number, got %s", b)
}

func (id ResourceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id ResourceID) String() string { return string(id) }

// Resource is an opaque backend record. The gateway never interprets the
// payload beyond its id; the raw JSON passes through to clients untouched.
type Resource struct {
	ID  ResourceID
	Raw json.RawMessage
}

// NewResource builds a Resource from raw JSON, extracting the id field.
// Records without an id are accepted (some read-only listings have none);
// such records simply cannot participate in update/delete reconciliation.
func NewResource(raw []byte) (Resource, error) {
	var probe struct {
		ID *ResourceID `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Resource{}, fmt.Errorf("parsing resource: %w", err)
	}
	r := Resource{Raw: append(json.RawMessage(nil), bytes.TrimSpace(raw)...)}
	if probe.ID != nil {
		r.ID = *probe.ID
	}
	return r, nil
}

// UnmarshalJSON captures the raw record and lifts out the id.
func (r *Resource) UnmarshalJSON(b []byte) error {
	res, err := NewResource(b)
	if err != nil {
		return err
	}
	*r = res
	return nil
}

// MarshalJSON emits the record exactly as the backend sent it.
func (r Resource) MarshalJSON() ([]byte, error) {
	if r.Raw == nil {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

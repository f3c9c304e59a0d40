package listsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/phovu7426/truyentranh/internal/backend"
	"github.com/phovu7426/truyentranh/internal/model"
)

// ErrOperationDisabled is returned when a CRUD operation was not enabled
// for this resource.
var ErrOperationDisabled = errors.New("operation not enabled for this resource")

// ItemClient performs single-record mutations. *backend.Client satisfies
// this.
type ItemClient interface {
	GetItem(ctx context.Context, path string) (model.Resource, error)
	CreateItem(ctx context.Context, path string, payload json.RawMessage) (model.Resource, error)
	UpdateItem(ctx context.Context, path string, payload json.RawMessage) (model.Resource, error)
	DeleteItem(ctx context.Context, path string) error
}

// Operations selects which mutations a Crud exposes. Read (list and
// get) is always available.
type Operations struct {
	Create bool
	Update bool
	Delete bool
}

// AllOperations enables every mutation.
var AllOperations = Operations{Create: true, Update: true, Delete: true}

// Crud layers optimistic-free mutations over a list controller: every
// mutation is confirmed by the backend first, then the local list is
// patched to match without a refetch. The last mutation failure is
// retained in an error slot for the presentation layer and also returned
// to the caller.
type Crud struct {
	client     ItemClient
	endpoints  backend.Endpoints
	controller *Controller
	ops        Operations

	mu      sync.Mutex
	lastErr *model.APIError
}

// NewCrud wires mutation support for the controller's collection.
func NewCrud(client ItemClient, endpoints backend.Endpoints, controller *Controller, ops Operations) *Crud {
	return &Crud{
		client:     client,
		endpoints:  endpoints,
		controller: controller,
		ops:        ops,
	}
}

// LastError returns the most recent mutation failure, or nil. Cleared at
// the start of every mutation attempt.
func (c *Crud) LastError() *model.APIError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Get fetches one record by ID without touching the list.
func (c *Crud) Get(ctx context.Context, id string) (model.Resource, error) {
	return c.client.GetItem(ctx, c.endpoints.Detail(id))
}

// Create submits a new record. On success the created resource, with its
// server-assigned ID, is prepended to the list.
func (c *Crud) Create(ctx context.Context, payload json.RawMessage) (model.Resource, error) {
	if !c.ops.Create {
		return model.Resource{}, ErrOperationDisabled
	}
	c.clearError()

	created, err := c.client.CreateItem(ctx, c.endpoints.Collection, payload)
	if err != nil {
		return model.Resource{}, c.recordError(err)
	}
	c.controller.prepend(created)
	return created, nil
}

// Update submits a full replacement of the record. On success the
// matching list entry is swapped in place; an entry not on the current
// page is left alone.
func (c *Crud) Update(ctx context.Context, id string, payload json.RawMessage) (model.Resource, error) {
	if !c.ops.Update {
		return model.Resource{}, ErrOperationDisabled
	}
	c.clearError()

	updated, err := c.client.UpdateItem(ctx, c.endpoints.Detail(id), payload)
	if err != nil {
		return model.Resource{}, c.recordError(err)
	}
	if updated.ID == "" {
		// Some endpoints return the updated record without an id; trust
		// the id we addressed.
		updated.ID = model.ResourceID(id)
	}
	c.controller.replace(updated)
	return updated, nil
}

// Delete removes the record. On success the matching list entry is
// dropped.
func (c *Crud) Delete(ctx context.Context, id string) error {
	if !c.ops.Delete {
		return ErrOperationDisabled
	}
	c.clearError()

	if err := c.client.DeleteItem(ctx, c.endpoints.Detail(id)); err != nil {
		return c.recordError(err)
	}
	c.controller.remove(model.ResourceID(id))
	return nil
}

func (c *Crud) clearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

// recordError stores the failure for LastError and passes it back to the
// caller unchanged. Failures that are not APIErrors are wrapped as
// internal so the slot always holds a renderable error.
func (c *Crud) recordError(err error) error {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewInternalError(err)
	}
	c.mu.Lock()
	c.lastErr = apiErr
	c.mu.Unlock()
	return err
}

// Package listsync keeps a list view synchronized with the backend
// through its URL query string. The query string is the single source of
// truth: mutators rewrite it through a Navigator, navigation feeds the
// new query back into OnQueryChange, and OnQueryChange fetches the
// matching page from the backend.
package listsync

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/phovu7426/truyentranh/internal/model"
	"github.com/phovu7426/truyentranh/internal/query"
)

// State is the lifecycle of the synchronized list.
type State int

const (
	// StateIdle means no fetch has happened yet.
	StateIdle State = iota
	// StateLoading means a fetch is in flight.
	StateLoading
	// StateReady means the last fetch succeeded and items are current.
	StateReady
	// StateFailed means the last fetch failed; items are the last
	// successful page.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lister fetches one page of a resource collection. *backend.Client
// satisfies this.
type Lister interface {
	List(ctx context.Context, path string, query url.Values) (*model.ListPage, error)
}

// Navigator reflects a new query string into the navigation layer. The
// HTTP surface implements it by redirecting the browser; the default
// loopback navigator just feeds the query straight back into the
// controller, so the controller works standalone.
type Navigator interface {
	Navigate(ctx context.Context, query url.Values) error
}

// Controller synchronizes one list view with one backend collection.
// Safe for concurrent use.
type Controller struct {
	lister Lister
	path   string
	nav    Navigator

	mu       sync.Mutex
	state    State
	inFlight bool
	query    url.Values
	items    []model.Resource
	meta     *model.PaginationMeta
	lastErr  error
}

// Option configures a Controller.
type Option func(*Controller)

// WithNavigator replaces the default loopback navigator.
func WithNavigator(nav Navigator) Option {
	return func(c *Controller) { c.nav = nav }
}

// NewController creates a controller fetching from path via lister.
func NewController(lister Lister, path string, opts ...Option) *Controller {
	c := &Controller{
		lister: lister,
		path:   path,
		state:  StateIdle,
		query:  url.Values{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.nav == nil {
		c.nav = loopbackNavigator{c}
	}
	return c
}

// loopbackNavigator short-circuits navigation back into the controller.
type loopbackNavigator struct {
	c *Controller
}

func (n loopbackNavigator) Navigate(ctx context.Context, q url.Values) error {
	return n.c.OnQueryChange(ctx, q)
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	State State
	Query url.Values
	Items []model.Resource
	Meta  *model.PaginationMeta
	Err   error
}

// Snapshot returns a copy of the current state. The items slice is
// copied; the resources inside share their raw JSON, which is never
// mutated.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State: c.state,
		Query: cloneValues(c.query),
		Items: append([]model.Resource(nil), c.items...),
		Err:   c.lastErr,
	}
	if c.meta != nil {
		meta := *c.meta
		snap.Meta = &meta
	}
	return snap
}

// OnQueryChange is the single entry point for query transitions: initial
// load, navigation, and every mutator funnel through here. If a fetch is
// already in flight the call is a no-op; the running fetch resolves with
// the query it started with. On failure the previous items and
// pagination are retained so the view degrades to stale rather than
// empty.
func (c *Controller) OnQueryChange(ctx context.Context, raw url.Values) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.state = StateLoading
	c.query = cloneValues(raw)
	fetchQuery := query.Decode(raw).Values()
	c.mu.Unlock()

	page, err := c.lister.List(ctx, c.path, fetchQuery)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.state = StateFailed
		c.lastErr = err
		return err
	}
	c.state = StateReady
	c.lastErr = nil
	c.items = page.Items
	if page.Meta != nil {
		// A response without pagination metadata keeps the previous
		// meta, so the pager stays usable across partial responses.
		c.meta = page.Meta
	}
	return nil
}

// Refresh refetches the current query.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	current := cloneValues(c.query)
	c.mu.Unlock()
	return c.OnQueryChange(ctx, current)
}

// ChangePage navigates to the given page, keeping filters and sort. The
// page size is pinned into the query so later responses cannot shift it.
// Page 1 is expressed by omission.
func (c *Controller) ChangePage(ctx context.Context, page int) error {
	c.mu.Lock()
	current := cloneValues(c.query)
	c.mu.Unlock()

	limit := current.Get(query.KeyLimit)
	if limit == "" {
		limit = current.Get(query.KeyPerPage)
	}
	if limit == "" {
		limit = strconv.Itoa(query.DefaultLimit)
	}

	next := query.Apply(current, map[string]string{
		query.KeyPage:  strconv.Itoa(page),
		query.KeyLimit: limit,
	})
	return c.nav.Navigate(ctx, next)
}

// UpdateFilters replaces the filter set and resets to the first page.
// Empty filter values are dropped; the previous sort is cleared with the
// previous filters.
func (c *Controller) UpdateFilters(ctx context.Context, filters map[string]string) error {
	c.mu.Lock()
	current := cloneValues(c.query)
	c.mu.Unlock()
	return c.nav.Navigate(ctx, query.ReplaceFilters(current, filters))
}

// UpdateSort sets the sort column and direction and resets to the first
// page.
func (c *Controller) UpdateSort(ctx context.Context, sortBy, sortOrder string) error {
	c.mu.Lock()
	current := cloneValues(c.query)
	c.mu.Unlock()
	next := query.Apply(current, map[string]string{
		query.KeySortBy:    sortBy,
		query.KeySortOrder: sortOrder,
		query.KeyPage:      "",
	})
	return c.nav.Navigate(ctx, next)
}

// ResetFilters clears all filters but keeps the pagination cursor.
func (c *Controller) ResetFilters(ctx context.Context) error {
	c.mu.Lock()
	current := cloneValues(c.query)
	c.mu.Unlock()
	return c.nav.Navigate(ctx, query.KeepPagination(current))
}

// ResetAll clears the entire query state.
func (c *Controller) ResetAll(ctx context.Context) error {
	return c.nav.Navigate(ctx, url.Values{})
}

// SerialNumber returns the 1-based ordinal of the item at index within
// the whole collection, accounting for the current page and page size.
func (c *Controller) SerialNumber(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := query.Decode(c.query)
	page := state.Page
	if page < 1 {
		page = 1
	}
	limit := state.Limit
	if limit < 1 {
		limit = query.DefaultLimit
	}
	return (page-1)*limit + index + 1
}

// prepend inserts a freshly created resource at the head of the list.
func (c *Controller) prepend(res model.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]model.Resource{res}, c.items...)
}

// replace swaps the item with the same ID in place. Items with blank or
// unmatched IDs are left untouched.
func (c *Controller) replace(res model.Resource) {
	if res.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == res.ID {
			c.items[i] = res
			return
		}
	}
}

// remove drops the item with the given ID, if present.
func (c *Controller) remove(id model.ResourceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, item := range c.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for key, vals := range v {
		out[key] = append([]string(nil), vals...)
	}
	return out
}

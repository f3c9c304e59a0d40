// Package query translates between raw URL query strings and the typed
// state driving a list view: pagination cursor, sort, and free-form
// filters. All functions are pure; reflecting the encoded state into a
// visible URL is the navigation layer's job.
package query

import (
	"net/url"
	"sort"
	"strconv"
)

// Reserved query keys. Everything else is a free-form filter passed
// through to the backend verbatim.
const (
	KeyPage      = "page"
	KeyLimit     = "limit"
	KeyPerPage   = "per_page" // accepted alias for limit
	KeySortBy    = "sort_by"
	KeySortOrder = "sort_order"
)

// DefaultLimit is the page size used when the query carries none.
const DefaultLimit = 10

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// State is the decoded query state. Zero values mean "unset": an unset
// page is canonical page 1.
type State struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Filters   map[string]string
}

// IsPaginationKey reports whether key addresses the pagination cursor.
// Sort keys deliberately do not count: filter replacement clears them.
func IsPaginationKey(key string) bool {
	return key == KeyPage || key == KeyLimit || key == KeyPerPage
}

// Decode parses raw query values into typed state. Pagination keys must
// parse as positive base-10 integers or they are dropped; empty values
// are dropped everywhere. Repeated keys keep their first value.
func Decode(raw url.Values) State {
	s := State{Filters: map[string]string{}}
	for key := range raw {
		value := raw.Get(key)
		if value == "" {
			continue
		}
		switch key {
		case KeyPage:
			if n, ok := parsePositive(value); ok {
				s.Page = n
			}
		case KeyLimit, KeyPerPage:
			if n, ok := parsePositive(value); ok {
				s.Limit = n
			}
		case KeySortBy:
			s.SortBy = value
		case KeySortOrder:
			s.SortOrder = value
		default:
			s.Filters[key] = value
		}
	}
	return s
}

// Values encodes the state in canonical form: page 1 is omitted (history
// entries never carry "?page=1"), as are all unset keys.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Page > 1 {
		v.Set(KeyPage, strconv.Itoa(s.Page))
	}
	if s.Limit > 0 {
		v.Set(KeyLimit, strconv.Itoa(s.Limit))
	}
	if s.SortBy != "" {
		v.Set(KeySortBy, s.SortBy)
	}
	if s.SortOrder != "" {
		v.Set(KeySortOrder, s.SortOrder)
	}
	for key, value := range s.Filters {
		if value != "" {
			v.Set(key, value)
		}
	}
	return v
}

// FilterKeys returns the filter key set in sorted order, for stable
// logging and display.
func (s State) FilterKeys() []string {
	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply merges updates onto current and re-canonicalizes. An empty
// update value deletes the key; page 1 is always stripped. The input
// values are not mutated.
func Apply(current url.Values, updates map[string]string) url.Values {
	next := clone(current)
	for key, value := range updates {
		if value == "" {
			next.Del(key)
			continue
		}
		next.Set(key, value)
	}
	if next.Get(KeyPage) == "1" {
		next.Del(KeyPage)
	}
	return next
}

// ReplaceFilters swaps in an entirely new filter set: every
// non-pagination key is dropped (sort keys included — stale sorts and
// filters from a previous search must never survive a new one) and the
// page resets to canonical 1. Pagination limits are preserved.
func ReplaceFilters(current url.Values, filters map[string]string) url.Values {
	next := url.Values{}
	for _, key := range []string{KeyLimit, KeyPerPage} {
		if v := current.Get(key); v != "" {
			next.Set(key, v)
		}
	}
	for key, value := range filters {
		if value != "" && !IsPaginationKey(key) {
			next.Set(key, value)
		}
	}
	return next
}

// KeepPagination strips everything except the pagination keys, the
// reset-filters behavior: the viewer stays on their page and page size.
func KeepPagination(current url.Values) url.Values {
	next := url.Values{}
	for _, key := range []string{KeyPage, KeyLimit, KeyPerPage} {
		if v := current.Get(key); v != "" {
			next.Set(key, v)
		}
	}
	return next
}

func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func clone(v url.Values) url.Values {
	out := url.Values{}
	for key, vals := range v {
		out[key] = append([]string(nil), vals...)
	}
	return out
}

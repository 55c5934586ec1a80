// Package query implements the list contract shared by every resource:
// page/limit pagination, allow-listed sorting with an identity tiebreak, and
// resource-specific filters. Filtering and sorting happen before the page
// window is cut.
package query

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	dErrors "pawnshop/pkg/domain-errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// SortOrder is asc or desc.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Spec describes what a resource allows in its list query.
type Spec struct {
	SortFields  []string
	DefaultSort string
	Filters     []string
}

// Params is a validated list query.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
	Filters   map[string]string
}

// Offset is the number of items skipped before the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Filter returns the trimmed value of a filter, or "" when absent.
func (p Params) Filter(key string) string {
	return p.Filters[key]
}

// Defaults returns the params used when a caller supplies nothing.
func (s Spec) Defaults() Params {
	return Params{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    s.DefaultSort,
		SortOrder: Desc,
		Filters:   map[string]string{},
	}
}

// Parse validates raw query values against spec. Every offending parameter is
// reported in a single validation error.
func Parse(values url.Values, spec Spec) (Params, error) {
	p := spec.Defaults()
	var fields []dErrors.FieldError

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, dErrors.FieldError{Field: "page", Message: "must be an integer >= 1"})
		} else {
			p.Page = n
		}
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			fields = append(fields, dErrors.FieldError{Field: "limit", Message: fmt.Sprintf("must be an integer between 1 and %d", MaxLimit)})
		} else {
			p.Limit = n
		}
	}

	if raw := strings.TrimSpace(values.Get("sortBy")); raw != "" {
		if !slices.Contains(spec.SortFields, raw) {
			fields = append(fields, dErrors.FieldError{
				Field:   "sortBy",
				Message: "must be one of " + strings.Join(spec.SortFields, ", "),
			})
		} else {
			p.SortBy = raw
		}
	}

	if raw := strings.TrimSpace(values.Get("sortOrder")); raw != "" {
		switch SortOrder(strings.ToLower(raw)) {
		case Asc:
			p.SortOrder = Asc
		case Desc:
			p.SortOrder = Desc
		default:
			fields = append(fields, dErrors.FieldError{Field: "sortOrder", Message: "must be asc or desc"})
		}
	}

	for _, key := range spec.Filters {
		if raw := strings.TrimSpace(values.Get(key)); raw != "" {
			p.Filters[key] = raw
		}
	}

	if len(fields) > 0 {
		return Params{}, dErrors.WithFields(dErrors.CodeValidation, "invalid list query", fields)
	}
	return p, nil
}

// Pagination is the block returned next to every list page.
type Pagination struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// Paginate computes the pagination block for total matching items.
func Paginate(total int, p Params) Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		Total:       total,
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		HasNext:     p.Page < totalPages,
		HasPrev:     p.Page > 1,
	}
}

// Page is one window of a filtered, sorted collection.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// NewPage builds a page; a nil slice becomes empty so it renders as [].
func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: Paginate(total, p)}
}

// Map converts the items of a page while keeping its pagination.
func Map[T, U any](page Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, fn(item))
	}
	return Page[U]{Items: out, Pagination: page.Pagination}
}

package models

import (
	"errors"
	"strings"
	"time"

	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

// ListSpec is the list contract for pawn transactions.
var ListSpec = query.Spec{
	SortFields:  []string{"pawnDate", "returnDate", "amount", "createdAt"},
	DefaultSort: "createdAt",
	Filters:     []string{"clientId", "categoryId", "pawnDateFrom", "pawnDateTo"},
}

// Filter narrows a transaction listing. Both date bounds are inclusive; a
// date-only upper bound covers that whole day.
type Filter struct {
	ClientID   *id.ClientID
	CategoryID *id.CategoryID
	From       *time.Time
	To         *time.Time
}

// ParseFilter reads the list filters out of p.
func ParseFilter(p query.Params) (Filter, error) {
	var f Filter
	var fields []dErrors.FieldError
	invalid := func(field string, err error) {
		msg := "is invalid"
		var de *dErrors.Error
		if errors.As(err, &de) {
			msg = de.Message
		}
		fields = append(fields, dErrors.FieldError{Field: field, Message: msg})
	}

	if raw := p.Filter("clientId"); raw != "" {
		clientID, err := id.ParseClientID(raw)
		if err != nil {
			invalid("clientId", err)
		} else {
			f.ClientID = &clientID
		}
	}
	if raw := p.Filter("categoryId"); raw != "" {
		categoryID, err := id.ParseCategoryID(raw)
		if err != nil {
			invalid("categoryId", err)
		} else {
			f.CategoryID = &categoryID
		}
	}
	if raw := p.Filter("pawnDateFrom"); raw != "" {
		from, err := id.ParseTimestamp(raw, "pawnDateFrom")
		if err != nil {
			invalid("pawnDateFrom", err)
		} else {
			f.From = &from
		}
	}
	if raw := p.Filter("pawnDateTo"); raw != "" {
		to, err := id.ParseTimestamp(raw, "pawnDateTo")
		if err != nil {
			invalid("pawnDateTo", err)
		} else {
			if len(strings.TrimSpace(raw)) == len(id.DateLayout) {
				to = to.Add(24*time.Hour - time.Microsecond)
			}
			f.To = &to
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		fields = append(fields, dErrors.FieldError{Field: "pawnDateTo", Message: "must not be before pawnDateFrom"})
	}

	if len(fields) > 0 {
		return Filter{}, dErrors.WithFields(dErrors.CodeValidation, "invalid list query", fields)
	}
	return f, nil
}

// Matches reports whether t passes every set filter.
func (f Filter) Matches(t *Transaction) bool {
	if f.ClientID != nil && t.ClientID != *f.ClientID {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.From != nil && t.PawnDate.Before(*f.From) {
		return false
	}
	if f.To != nil && t.PawnDate.After(*f.To) {
		return false
	}
	return true
}

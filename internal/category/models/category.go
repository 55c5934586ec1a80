package models

import (
	"strings"
	"time"

	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

// ListSpec is the list contract for item categories.
var ListSpec = query.Spec{
	SortFields:  []string{"categoryName", "createdAt"},
	DefaultSort: "createdAt",
	Filters:     []string{"search"},
}

// Category is a kind of pawned item. CategoryName is unique, compared exactly.
type Category struct {
	ID           id.CategoryID
	CategoryName string
	Notes        string
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Patch carries the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	CategoryName *string
	Notes        *string
}

func NewCategory(categoryID id.CategoryID, name, notes, actor string, now time.Time) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nameRequired()
	}
	return &Category{
		ID:           categoryID,
		CategoryName: name,
		Notes:        strings.TrimSpace(notes),
		CreatedBy:    actor,
		UpdatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Apply overwrites the supplied fields. An explicitly empty name is rejected;
// notes may be cleared.
func (c *Category) Apply(p Patch, actor string, now time.Time) error {
	if p.CategoryName != nil {
		name := strings.TrimSpace(*p.CategoryName)
		if name == "" {
			return nameRequired()
		}
		c.CategoryName = name
	}
	if p.Notes != nil {
		c.Notes = strings.TrimSpace(*p.Notes)
	}
	c.UpdatedBy = actor
	c.UpdatedAt = now
	return nil
}

// Matches reports whether search occurs in the name or notes.
func (c *Category) Matches(search string) bool {
	if search == "" {
		return true
	}
	return query.ContainsFold(search, c.CategoryName, c.Notes)
}

func nameRequired() error {
	return dErrors.WithFields(dErrors.CodeValidation, "Category name is required",
		[]dErrors.FieldError{{Field: "categoryName", Message: "is required"}})
}

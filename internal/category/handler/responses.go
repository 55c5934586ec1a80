package handler

import (
	"time"

	"pawnshop/internal/category/models"
)

// CategoryResponse is the wire shape of an item category.
type CategoryResponse struct {
	ID           string    `json:"id"`
	CategoryName string    `json:"categoryName"`
	Notes        string    `json:"notes"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	UpdatedBy    string    `json:"updatedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func FromCategory(c *models.Category) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID.String(),
		CategoryName: c.CategoryName,
		Notes:        c.Notes,
		CreatedBy:    c.CreatedBy,
		UpdatedBy:    c.UpdatedBy,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

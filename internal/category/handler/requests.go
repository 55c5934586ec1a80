package handler

import (
	"strings"

	"pawnshop/internal/category/models"
	dErrors "pawnshop/pkg/domain-errors"
)

// CreateCategoryRequest is the body of POST /itemCategories.
type CreateCategoryRequest struct {
	CategoryName string `json:"categoryName"`
	Notes        string `json:"notes"`
}

func (r *CreateCategoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.CategoryName = strings.TrimSpace(r.CategoryName)
	r.Notes = strings.TrimSpace(r.Notes)
	if r.CategoryName == "" {
		return nameRequired()
	}
	return nil
}

// UpdateCategoryRequest is the body of PUT /itemCategories/{id}. Omitted
// fields are left as stored.
type UpdateCategoryRequest struct {
	CategoryName *string `json:"categoryName"`
	Notes        *string `json:"notes"`
}

func (r *UpdateCategoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.CategoryName != nil && strings.TrimSpace(*r.CategoryName) == "" {
		return nameRequired()
	}
	return nil
}

func (r *UpdateCategoryRequest) Patch() models.Patch {
	return models.Patch{CategoryName: r.CategoryName, Notes: r.Notes}
}

func nameRequired() error {
	return dErrors.WithFields(dErrors.CodeValidation, "Category name is required",
		[]dErrors.FieldError{{Field: "categoryName", Message: "is required"}})
}

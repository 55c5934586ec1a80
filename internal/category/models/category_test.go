package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

func ptr(s string) *string { return &s }

func TestNewCategory(t *testing.T) {
	now := time.Now()
	c, err := NewCategory(id.NewCategoryID(), "  Jewelry ", "gold and silver", "admin-1", now)
	require.NoError(t, err)
	assert.Equal(t, "Jewelry", c.CategoryName)
	assert.Equal(t, "admin-1", c.CreatedBy)
	assert.Equal(t, "admin-1", c.UpdatedBy)
	assert.Equal(t, now, c.UpdatedAt)

	_, err = NewCategory(id.NewCategoryID(), "   ", "", "admin-1", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestApplyOverwritesOnlySuppliedFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCategory(id.NewCategoryID(), "Jewelry", "gold", "admin-1", created)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	require.NoError(t, c.Apply(Patch{Notes: ptr("silver")}, "admin-2", later))
	assert.Equal(t, "Jewelry", c.CategoryName)
	assert.Equal(t, "silver", c.Notes)
	assert.Equal(t, "admin-1", c.CreatedBy)
	assert.Equal(t, "admin-2", c.UpdatedBy)
	assert.Equal(t, later, c.UpdatedAt)

	require.NoError(t, c.Apply(Patch{Notes: ptr("")}, "admin-2", later))
	assert.Empty(t, c.Notes)

	err = c.Apply(Patch{CategoryName: ptr("")}, "admin-2", later)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "Jewelry", c.CategoryName)
}

func TestMatches(t *testing.T) {
	c := &Category{CategoryName: "Electronics", Notes: "phones, laptops"}
	assert.True(t, c.Matches(""))
	assert.True(t, c.Matches("electro"))
	assert.True(t, c.Matches("LAPTOP"))
	assert.False(t, c.Matches("jewel"))
}

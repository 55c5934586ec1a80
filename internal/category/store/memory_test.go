package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pawnshop/internal/category/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
)

type CategoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestCategoryStoreSuite(t *testing.T) {
	suite.Run(t, new(CategoryStoreSuite))
}

func (s *CategoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newCategory(name string, created time.Time) *models.Category {
	return &models.Category{
		ID:           id.NewCategoryID(),
		CategoryName: name,
		CreatedBy:    "admin-1",
		UpdatedBy:    "admin-1",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func (s *CategoryStoreSuite) TestNameUniqueness() {
	c := newCategory("Jewelry", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, c))
	s.ErrorIs(s.store.Create(s.ctx, newCategory("Jewelry", time.Now())), sentinel.ErrAlreadyUsed)

	s.Run("names are case sensitive", func() {
		s.NoError(s.store.Create(s.ctx, newCategory("jewelry", time.Now())))
	})

	s.Run("rename frees the old name", func() {
		c.CategoryName = "Watches"
		s.Require().NoError(s.store.Update(s.ctx, c))
		_, err := s.store.FindByName(s.ctx, "Jewelry")
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.NoError(s.store.Create(s.ctx, newCategory("Jewelry", time.Now())))
	})

	s.Run("rename onto a taken name", func() {
		c.CategoryName = "jewelry"
		s.ErrorIs(s.store.Update(s.ctx, c), sentinel.ErrAlreadyUsed)
	})
}

func (s *CategoryStoreSuite) TestDeleteHonorsReferences() {
	c := newCategory("Tools", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, c))

	s.Require().NoError(s.store.Retain(s.ctx, c.ID))
	s.Require().NoError(s.store.Retain(s.ctx, c.ID))
	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrReferenced)

	s.store.Release(s.ctx, c.ID)
	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrReferenced)
	s.store.Release(s.ctx, c.ID)
	s.Require().NoError(s.store.Delete(s.ctx, c.ID))

	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Retain(s.ctx, c.ID), sentinel.ErrDanglingReference)
}

func (s *CategoryStoreSuite) TestListAndBatchLookup() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []id.CategoryID
	for i := 1; i <= 12; i++ {
		c := newCategory(fmt.Sprintf("Category %02d", i), base.Add(time.Duration(i)*time.Minute))
		if i%4 == 0 {
			c.Notes = "fragile"
		}
		s.Require().NoError(s.store.Create(s.ctx, c))
		ids = append(ids, c.ID)
	}

	page, err := s.store.List(s.ctx, query.Params{Page: 1, Limit: 5, SortBy: "categoryName", SortOrder: query.Desc,
		Filters: map[string]string{"search": "FRAG"}})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 3)
	s.Equal("Category 12", page.Items[0].CategoryName)
	s.Equal("Category 04", page.Items[2].CategoryName)
	s.Equal(query.Pagination{Total: 3, CurrentPage: 1, TotalPages: 1}, page.Pagination)

	found, err := s.store.FindByIDs(s.ctx, append(ids[:2:2], id.NewCategoryID()))
	s.Require().NoError(err)
	s.Len(found, 2)
}

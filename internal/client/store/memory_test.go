package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pawnshop/internal/client/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
)

type ClientStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestClientStoreSuite(t *testing.T) {
	suite.Run(t, new(ClientStoreSuite))
}

func (s *ClientStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newClient(passport string, created time.Time) *models.Client {
	return &models.Client{
		ID: id.NewClientID(),
		Identity: models.Identity{
			FirstName:         "John",
			LastName:          "Doe",
			MiddleName:        "Robert",
			PassportNumber:    passport,
			PassportSeries:    "AB",
			PassportIssueDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func (s *ClientStoreSuite) TestCreateAndFind() {
	c := newClient("111", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, c))

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c, found)

	byPassport, err := s.store.FindByPassportNumber(s.ctx, "111")
	s.Require().NoError(err)
	s.Equal(c.ID, byPassport.ID)

	_, err = s.store.FindByID(s.ctx, id.NewClientID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ClientStoreSuite) TestPassportUniqueness() {
	s.Require().NoError(s.store.Create(s.ctx, newClient("222", time.Now())))

	s.Run("create collision", func() {
		s.ErrorIs(s.store.Create(s.ctx, newClient("222", time.Now())), sentinel.ErrAlreadyUsed)
	})

	s.Run("update collision", func() {
		other := newClient("333", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, other))
		other.PassportNumber = "222"
		s.ErrorIs(s.store.Update(s.ctx, other), sentinel.ErrAlreadyUsed)
	})

	s.Run("update frees the old passport", func() {
		c := newClient("444", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, c))
		c.PassportNumber = "555"
		s.Require().NoError(s.store.Update(s.ctx, c))
		s.NoError(s.store.Create(s.ctx, newClient("444", time.Now())))
	})
}

func (s *ClientStoreSuite) TestDeleteHonorsReferences() {
	c := newClient("666", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, c))

	s.Require().NoError(s.store.Retain(s.ctx, c.ID))
	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrReferenced)

	s.store.Release(s.ctx, c.ID)
	s.Require().NoError(s.store.Delete(s.ctx, c.ID))
	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrNotFound)

	s.ErrorIs(s.store.Retain(s.ctx, c.ID), sentinel.ErrDanglingReference)
}

func (s *ClientStoreSuite) TestList() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 25; i++ {
		c := newClient(fmt.Sprintf("P%03d", i), base.Add(time.Duration(i)*time.Minute))
		if i == 7 {
			c.LastName = "Ivanov"
		}
		s.Require().NoError(s.store.Create(s.ctx, c))
	}

	s.Run("oldest first, second page", func() {
		page, err := s.store.List(s.ctx, query.Params{Page: 2, Limit: 10, SortBy: "createdAt", SortOrder: query.Asc})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 10)
		s.Equal("P011", page.Items[0].PassportNumber)
		s.Equal("P020", page.Items[9].PassportNumber)
		s.Equal(query.Pagination{Total: 25, CurrentPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}, page.Pagination)
	})

	s.Run("search filter", func() {
		page, err := s.store.List(s.ctx, query.Params{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: query.Desc,
			Filters: map[string]string{"search": "ivan"}})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal("P007", page.Items[0].PassportNumber)
		s.Equal(1, page.Pagination.Total)
	})
}

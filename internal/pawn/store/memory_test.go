package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	categorymodels "pawnshop/internal/category/models"
	categorystore "pawnshop/internal/category/store"
	clientmodels "pawnshop/internal/client/models"
	clientstore "pawnshop/internal/client/store"
	"pawnshop/internal/pawn/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
)

type LedgerStoreSuite struct {
	suite.Suite
	ctx        context.Context
	clients    *clientstore.InMemory
	categories *categorystore.InMemory
	store      *InMemory
	client     id.ClientID
	category   id.CategoryID
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clients = clientstore.NewInMemory()
	s.categories = categorystore.NewInMemory()
	s.store = NewInMemory(s.clients, s.categories)
	s.client = s.addClient("P-1")
	s.category = s.addCategory("Jewelry")
}

func (s *LedgerStoreSuite) addClient(passport string) id.ClientID {
	c := &clientmodels.Client{ID: id.NewClientID(), Identity: clientmodels.Identity{PassportNumber: passport}}
	s.Require().NoError(s.clients.Create(s.ctx, c))
	return c.ID
}

func (s *LedgerStoreSuite) addCategory(name string) id.CategoryID {
	c := &categorymodels.Category{ID: id.NewCategoryID(), CategoryName: name}
	s.Require().NoError(s.categories.Create(s.ctx, c))
	return c.ID
}

func (s *LedgerStoreSuite) newTransaction(pawnDate time.Time, amount int64) *models.Transaction {
	t, err := models.NewTransaction(id.NewTransactionID(), models.Terms{
		CategoryID:      s.category,
		ClientID:        s.client,
		ItemDescription: "Gold Ring 18K",
		PawnDate:        pawnDate,
		Amount:          decimal.NewFromInt(amount),
		Commission:      decimal.NewFromInt(5),
	}, pawnDate)
	s.Require().NoError(err)
	return t
}

func (s *LedgerStoreSuite) TestCreateRetainsReferences() {
	t := s.newTransaction(time.Now(), 100)
	s.Require().NoError(s.store.Create(s.ctx, t))

	s.ErrorIs(s.clients.Delete(s.ctx, s.client), sentinel.ErrReferenced)
	s.ErrorIs(s.categories.Delete(s.ctx, s.category), sentinel.ErrReferenced)

	n, err := s.store.CountByClient(s.ctx, s.client)
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Require().NoError(s.store.Delete(s.ctx, t.ID))
	s.NoError(s.clients.Delete(s.ctx, s.client))
	s.NoError(s.categories.Delete(s.ctx, s.category))
	s.ErrorIs(s.store.Delete(s.ctx, t.ID), sentinel.ErrNotFound)
}

func (s *LedgerStoreSuite) TestCreateRejectsDanglingReferences() {
	t := s.newTransaction(time.Now(), 100)
	t.CategoryID = id.NewCategoryID()

	s.ErrorIs(s.store.Create(s.ctx, t), sentinel.ErrDanglingReference)
	s.NoError(s.clients.Delete(s.ctx, s.client), "client reference must be rolled back")
}

func (s *LedgerStoreSuite) TestUpdateMovesReferences() {
	t := s.newTransaction(time.Now(), 100)
	s.Require().NoError(s.store.Create(s.ctx, t))
	otherClient := s.addClient("P-2")

	t.ClientID = otherClient
	s.Require().NoError(s.store.Update(s.ctx, t))
	s.NoError(s.clients.Delete(s.ctx, s.client))
	s.ErrorIs(s.clients.Delete(s.ctx, otherClient), sentinel.ErrReferenced)

	t.CategoryID = id.NewCategoryID()
	s.ErrorIs(s.store.Update(s.ctx, t), sentinel.ErrDanglingReference)

	stored, err := s.store.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(s.category, stored.CategoryID)
}

func (s *LedgerStoreSuite) TestStoredCopiesAreIsolated() {
	t := s.newTransaction(time.Now(), 100)
	s.Require().NoError(s.store.Create(s.ctx, t))

	got, err := s.store.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Require().NoError(got.AppendPrice(decimal.NewFromInt(150), time.Now()))

	again, err := s.store.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(again.PriceHistory, 1)
}

func (s *LedgerStoreSuite) TestListFiltersSortsAndPages() {
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := range 25 {
		s.Require().NoError(s.store.Create(s.ctx, s.newTransaction(base.Add(time.Duration(i)*24*time.Hour), int64(100+i))))
	}
	other := s.newTransaction(base, 5000)
	other.ClientID = s.addClient("P-3")
	s.Require().NoError(s.store.Create(s.ctx, other))

	s.Run("filter by client then page", func() {
		f := models.Filter{ClientID: &s.client}
		page, err := s.store.List(s.ctx, f, query.Params{Page: 2, Limit: 10, SortBy: "pawnDate", SortOrder: query.Asc})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 10)
		s.True(page.Items[0].Amount.Equal(decimal.NewFromInt(110)))
		s.True(page.Items[9].Amount.Equal(decimal.NewFromInt(119)))
		s.Equal(query.Pagination{Total: 25, CurrentPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}, page.Pagination)
	})

	s.Run("amount descending", func() {
		page, err := s.store.List(s.ctx, models.Filter{}, query.Params{Page: 1, Limit: 1, SortBy: "amount", SortOrder: query.Desc})
		s.Require().NoError(err)
		s.Equal(other.ID, page.Items[0].ID)
	})

	s.Run("date range", func() {
		from := base.Add(24 * time.Hour)
		to := base.Add(3 * 24 * time.Hour)
		page, err := s.store.List(s.ctx, models.Filter{From: &from, To: &to}, query.Params{Page: 1, Limit: 10, SortBy: "pawnDate"})
		s.Require().NoError(err)
		s.Equal(3, page.Pagination.Total)
	})
}

func (s *LedgerStoreSuite) TestMissingReturnDatesSortLast() {
	now := time.Now()
	rd := now.Add(time.Hour)
	with := s.newTransaction(now, 100)
	with.ReturnDate = &rd
	without := s.newTransaction(now, 100)
	s.Require().NoError(s.store.Create(s.ctx, with))
	s.Require().NoError(s.store.Create(s.ctx, without))

	page, err := s.store.List(s.ctx, models.Filter{}, query.Params{Page: 1, Limit: 10, SortBy: "returnDate", SortOrder: query.Asc})
	s.Require().NoError(err)
	s.Equal(with.ID, page.Items[0].ID)
	s.Equal(without.ID, page.Items[1].ID)
}

//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pawnshop/internal/client/models"
	"pawnshop/internal/client/store"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
	"pawnshop/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	// Truncate in dependency order
	err := s.postgres.TruncateTables(context.Background(), "pawn_transactions", "item_categories", "clients")
	s.Require().NoError(err)
}

func newTestClient(passport string) *models.Client {
	now := time.Now().UTC().Truncate(time.Microsecond)
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
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	c := newTestClient("RT-1")
	s.Require().NoError(s.store.Create(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c, found)
}

// TestConcurrentPassportUniqueness verifies that concurrent creation attempts
// with the same passport number result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentPassportUniqueness() {
	ctx := context.Background()
	passport := "P-" + uuid.NewString()[:8]
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestClient(passport))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflictCount.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	a := newTestClient("UD-1")
	b := newTestClient("UD-2")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	b.PassportNumber = "UD-1"
	s.ErrorIs(s.store.Update(ctx, b), sentinel.ErrAlreadyUsed)

	missing := newTestClient("UD-3")
	s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)

	s.Require().NoError(s.store.Delete(ctx, a.ID))
	s.ErrorIs(s.store.Delete(ctx, a.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListSearchAndBatchLookup() {
	ctx := context.Background()
	a := newTestClient("LS-1")
	a.LastName = "Ivanov"
	b := newTestClient("LS-2")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	page, err := s.store.List(ctx, query.Params{Page: 1, Limit: 10, SortBy: "lastName", SortOrder: query.Asc,
		Filters: map[string]string{"search": "IVAN"}})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(a.ID, page.Items[0].ID)

	found, err := s.store.FindByIDs(ctx, []id.ClientID{a.ID, b.ID, id.NewClientID()})
	s.Require().NoError(err)
	s.Len(found, 2)
}

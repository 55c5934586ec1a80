package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ReferenceCounter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pawnshop/internal/audit"
	"pawnshop/internal/category/models"
	"pawnshop/internal/category/service/mocks"
	"pawnshop/internal/platform/logger"
	"pawnshop/internal/platform/metrics"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/sentinel"
	"pawnshop/pkg/requestcontext"
)

type recordingPublisher struct {
	events []audit.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e audit.Event) error {
	p.events = append(p.events, e)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	store      *mocks.MockStore
	references *mocks.MockReferenceCounter
	publisher  *recordingPublisher
	metrics    *metrics.Metrics
	service    *Service
	ctx        context.Context
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.references = mocks.NewMockReferenceCounter(s.ctrl)
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store,
		WithReferenceCounter(s.references),
		WithLogger(logger.Discard()),
		WithAuditPublisher(s.publisher),
		WithMetrics(s.metrics),
	)
	s.now = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithActor(requestcontext.WithTime(context.Background(), s.now), "admin-7", "Admin")
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func ptr(v string) *string { return &v }

func (s *ServiceSuite) TestCreate() {
	s.Run("records the creator", func() {
		s.store.EXPECT().FindByName(gomock.Any(), "Jewelry").Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		c, err := s.service.Create(s.ctx, " Jewelry ", "gold")
		s.Require().NoError(err)
		s.Equal("Jewelry", c.CategoryName)
		s.Equal("admin-7", c.CreatedBy)
		s.Equal(s.now, c.CreatedAt)

		s.Require().Len(s.publisher.events, 1)
		s.Equal(audit.ActionCreated, s.publisher.events[0].Action)
		s.Equal(c.ID.String(), s.publisher.events[0].ResourceID)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.EntityOperations.WithLabelValues("itemCategory", "create")))
	})

	s.Run("empty name is a validation error", func() {
		_, err := s.service.Create(s.ctx, "  ", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("name collision is a duplicate", func() {
		s.store.EXPECT().FindByName(gomock.Any(), "Jewelry").Return(&models.Category{ID: id.NewCategoryID()}, nil)
		_, err := s.service.Create(s.ctx, "Jewelry", "")
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	})

	s.Run("store constraint is authoritative", func() {
		s.store.EXPECT().FindByName(gomock.Any(), "Jewelry").Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)
		_, err := s.service.Create(s.ctx, "Jewelry", "")
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	})
}

func (s *ServiceSuite) TestUpdate() {
	categoryID := id.NewCategoryID()
	existing := func() *models.Category {
		return &models.Category{
			ID: categoryID, CategoryName: "Jewelry", Notes: "gold",
			CreatedBy: "admin-1", UpdatedBy: "admin-1",
			CreatedAt: s.now.Add(-time.Hour), UpdatedAt: s.now.Add(-time.Hour),
		}
	}

	s.Run("notes only skips the name check", func() {
		s.store.EXPECT().FindByID(gomock.Any(), categoryID).Return(existing(), nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		c, err := s.service.Update(s.ctx, categoryID, models.Patch{Notes: ptr("silver")})
		s.Require().NoError(err)
		s.Equal("Jewelry", c.CategoryName)
		s.Equal("silver", c.Notes)
		s.Equal("admin-1", c.CreatedBy)
		s.Equal("admin-7", c.UpdatedBy)
		s.Equal(s.now, c.UpdatedAt)
	})

	s.Run("rename checks availability", func() {
		s.store.EXPECT().FindByID(gomock.Any(), categoryID).Return(existing(), nil)
		s.store.EXPECT().FindByName(gomock.Any(), "Watches").Return(&models.Category{ID: id.NewCategoryID()}, nil)

		_, err := s.service.Update(s.ctx, categoryID, models.Patch{CategoryName: ptr("Watches")})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	})

	s.Run("explicit empty name is rejected", func() {
		s.store.EXPECT().FindByID(gomock.Any(), categoryID).Return(existing(), nil)
		_, err := s.service.Update(s.ctx, categoryID, models.Patch{CategoryName: ptr("")})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing category", func() {
		s.store.EXPECT().FindByID(gomock.Any(), categoryID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Update(s.ctx, categoryID, models.Patch{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGet() {
	categoryID := id.NewCategoryID()

	s.Run("missing category is not found", func() {
		s.store.EXPECT().FindByID(gomock.Any(), categoryID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(s.ctx, categoryID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure is internal", func() {
		s.store.EXPECT().FindByID(gomock.Any(), categoryID).Return(nil, errors.New("timeout"))
		_, err := s.service.Get(s.ctx, categoryID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestDelete() {
	categoryID := id.NewCategoryID()

	s.Run("unreferenced category is deleted", func() {
		s.references.EXPECT().CountByCategory(gomock.Any(), categoryID).Return(0, nil)
		s.store.EXPECT().Delete(gomock.Any(), categoryID).Return(nil)
		s.NoError(s.service.Delete(s.ctx, categoryID))
	})

	s.Run("missing category is not found", func() {
		s.references.EXPECT().CountByCategory(gomock.Any(), categoryID).Return(0, nil)
		s.store.EXPECT().Delete(gomock.Any(), categoryID).Return(sentinel.ErrNotFound)
		s.True(dErrors.HasCode(s.service.Delete(s.ctx, categoryID), dErrors.CodeNotFound))
	})

	s.Run("referenced category is a conflict", func() {
		s.references.EXPECT().CountByCategory(gomock.Any(), categoryID).Return(1, nil)
		s.True(dErrors.HasCode(s.service.Delete(s.ctx, categoryID), dErrors.CodeConflict))
	})
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pawnshop/internal/audit"
	"pawnshop/internal/category/models"
	"pawnshop/internal/platform/metrics"
	"pawnshop/internal/platform/tracing"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/sentinel"
	"pawnshop/pkg/requestcontext"
)

const resourceName = "itemCategory"

type Store interface {
	Create(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context, p query.Params) (query.Page[*models.Category], error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, categoryID id.CategoryID) error
}

// ReferenceCounter counts pawn transactions filed under a category.
type ReferenceCounter interface {
	CountByCategory(ctx context.Context, categoryID id.CategoryID) (int, error)
}

// Service is the item category registry.
type Service struct {
	store          Store
	references     ReferenceCounter
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithReferenceCounter(rc ReferenceCounter) Option {
	return func(s *Service) {
		s.references = rc
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: tracing.Tracer(resourceName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a category. The caller's subject is recorded as creator.
func (s *Service) Create(ctx context.Context, name, notes string) (_ *models.Category, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "category.Create")
	defer func() { tracing.End(span, err) }()

	actor := requestcontext.Actor(ctx).Subject
	c, err := models.NewCategory(id.NewCategoryID(), name, notes, actor, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.checkNameAvailable(ctx, c.CategoryName, c.ID); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, duplicateError()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create category")
	}

	span.SetAttributes(attribute.String("category.id", c.ID.String()))
	s.recordChange(ctx, audit.ActionCreated, "create", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, categoryID id.CategoryID) (_ *models.Category, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "category.Get", attribute.String("category.id", categoryID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.store.FindByID(ctx, categoryID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, p query.Params) (_ query.Page[*models.Category], err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "category.List")
	defer func() { tracing.End(span, err) }()

	page, err := s.store.List(ctx, p)
	if err != nil {
		return query.Page[*models.Category]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list categories")
	}
	return page, nil
}

// Update applies a partial patch; absent fields keep their stored values.
func (s *Service) Update(ctx context.Context, categoryID id.CategoryID, patch models.Patch) (_ *models.Category, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "category.Update", attribute.String("category.id", categoryID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.store.FindByID(ctx, categoryID)
	if err != nil {
		return nil, translateLookup(err)
	}
	if err := c.Apply(patch, requestcontext.Actor(ctx).Subject, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if patch.CategoryName != nil {
		if err := s.checkNameAvailable(ctx, c.CategoryName, c.ID); err != nil {
			return nil, err
		}
	}
	if err := s.store.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, duplicateError()
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, notFoundError()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update category")
	}

	s.recordChange(ctx, audit.ActionUpdated, "update", c.ID)
	return c, nil
}

// Delete hard-deletes a category no pawn transaction is filed under.
func (s *Service) Delete(ctx context.Context, categoryID id.CategoryID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "category.Delete", attribute.String("category.id", categoryID.String()))
	defer func() { tracing.End(span, err) }()

	if s.references != nil {
		n, err := s.references.CountByCategory(ctx, categoryID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count category transactions")
		}
		if n > 0 {
			return referencedError()
		}
	}
	if err := s.store.Delete(ctx, categoryID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return notFoundError()
		case errors.Is(err, sentinel.ErrReferenced):
			return referencedError()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete category")
	}

	s.recordChange(ctx, audit.ActionDeleted, "delete", categoryID)
	return nil
}

func (s *Service) checkNameAvailable(ctx context.Context, name string, self id.CategoryID) error {
	existing, err := s.store.FindByName(ctx, name)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check category name")
	case existing.ID != self:
		return duplicateError()
	}
	return nil
}

func (s *Service) recordChange(ctx context.Context, action audit.Action, op string, categoryID id.CategoryID) {
	s.metrics.IncrementEntityOperation(resourceName, op)
	audit.Emit(ctx, s.auditPublisher, s.logger, audit.NewEvent(ctx, action, resourceName, categoryID.String()))
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return notFoundError()
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load category")
}

func notFoundError() error {
	return dErrors.New(dErrors.CodeNotFound, "Category not found")
}

func duplicateError() error {
	return dErrors.New(dErrors.CodeDuplicate, "Category already exists")
}

func referencedError() error {
	return dErrors.New(dErrors.CodeConflict, "Category is referenced by pawn transactions")
}

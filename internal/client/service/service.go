package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pawnshop/internal/audit"
	"pawnshop/internal/client/models"
	"pawnshop/internal/platform/metrics"
	"pawnshop/internal/platform/tracing"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/sentinel"
	"pawnshop/pkg/requestcontext"
)

const resourceName = "client"

type Store interface {
	Create(ctx context.Context, c *models.Client) error
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	FindByPassportNumber(ctx context.Context, number string) (*models.Client, error)
	List(ctx context.Context, p query.Params) (query.Page[*models.Client], error)
	Update(ctx context.Context, c *models.Client) error
	Delete(ctx context.Context, clientID id.ClientID) error
}

// ReferenceCounter counts pawn transactions pointing at a client.
type ReferenceCounter interface {
	CountByClient(ctx context.Context, clientID id.ClientID) (int, error)
}

// Service is the client registry.
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

// WithReferenceCounter enables the advisory referenced-delete check. The store
// still has the final word.
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

// Create registers a client. A passport number already on file is a
// duplicate, whether caught by the lookup or by the store constraint.
func (s *Service) Create(ctx context.Context, identity models.Identity) (_ *models.Client, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "client.Create")
	defer func() { tracing.End(span, err) }()

	c, err := models.NewClient(id.NewClientID(), identity, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.checkPassportAvailable(ctx, c.PassportNumber, c.ID); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, duplicateError()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client")
	}

	span.SetAttributes(attribute.String("client.id", c.ID.String()))
	s.recordChange(ctx, audit.ActionCreated, "create", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, clientID id.ClientID) (_ *models.Client, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "client.Get", attribute.String("client.id", clientID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, p query.Params) (_ query.Page[*models.Client], err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "client.List")
	defer func() { tracing.End(span, err) }()

	page, err := s.store.List(ctx, p)
	if err != nil {
		return query.Page[*models.Client]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return page, nil
}

// Update replaces the full identity of a client.
func (s *Service) Update(ctx context.Context, clientID id.ClientID, identity models.Identity) (_ *models.Client, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "client.Update", attribute.String("client.id", clientID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		return nil, translateLookup(err)
	}
	if err := c.Replace(identity, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.checkPassportAvailable(ctx, c.PassportNumber, c.ID); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, duplicateError()
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, notFoundError()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client")
	}

	s.recordChange(ctx, audit.ActionUpdated, "update", c.ID)
	return c, nil
}

// Delete hard-deletes a client that no pawn transaction references.
func (s *Service) Delete(ctx context.Context, clientID id.ClientID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "client.Delete", attribute.String("client.id", clientID.String()))
	defer func() { tracing.End(span, err) }()

	if s.references != nil {
		n, err := s.references.CountByClient(ctx, clientID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count client transactions")
		}
		if n > 0 {
			// absent clients have no references, so this is never a masked 404
			return referencedError()
		}
	}
	if err := s.store.Delete(ctx, clientID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return notFoundError()
		case errors.Is(err, sentinel.ErrReferenced):
			return referencedError()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete client")
	}

	s.recordChange(ctx, audit.ActionDeleted, "delete", clientID)
	return nil
}

func (s *Service) checkPassportAvailable(ctx context.Context, number string, self id.ClientID) error {
	existing, err := s.store.FindByPassportNumber(ctx, number)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check passport number")
	case existing.ID != self:
		return duplicateError()
	}
	return nil
}

func (s *Service) recordChange(ctx context.Context, action audit.Action, op string, clientID id.ClientID) {
	s.metrics.IncrementEntityOperation(resourceName, op)
	audit.Emit(ctx, s.auditPublisher, s.logger, audit.NewEvent(ctx, action, resourceName, clientID.String()))
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return notFoundError()
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
}

func notFoundError() error {
	return dErrors.New(dErrors.CodeNotFound, "Client not found")
}

func duplicateError() error {
	return dErrors.New(dErrors.CodeDuplicate, "Client already exists")
}

func referencedError() error {
	return dErrors.New(dErrors.CodeConflict, "Client is referenced by pawn transactions")
}

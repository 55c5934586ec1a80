package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pawnshop/internal/audit"
	categorymodels "pawnshop/internal/category/models"
	clientmodels "pawnshop/internal/client/models"
	ledgermetrics "pawnshop/internal/pawn/metrics"
	"pawnshop/internal/pawn/models"
	"pawnshop/internal/platform/metrics"
	"pawnshop/internal/platform/tracing"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/sentinel"
	"pawnshop/pkg/requestcontext"
)

const resourceName = "pawnTransaction"

type Store interface {
	Create(ctx context.Context, t *models.Transaction) error
	FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	List(ctx context.Context, f models.Filter, p query.Params) (query.Page[*models.Transaction], error)
	Update(ctx context.Context, t *models.Transaction) error
	Delete(ctx context.Context, txID id.TransactionID) error
}

// StoreTx provides a transactional boundary for read-modify-write sequences.
// Implementations may wrap a database transaction or, in-memory, a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ClientDirectory resolves clients for existence checks and projections.
type ClientDirectory interface {
	FindByIDs(ctx context.Context, ids []id.ClientID) (map[id.ClientID]*clientmodels.Client, error)
}

// CategoryDirectory resolves item categories for existence checks and projections.
type CategoryDirectory interface {
	FindByIDs(ctx context.Context, ids []id.CategoryID) (map[id.CategoryID]*categorymodels.Category, error)
}

// Service is the transaction ledger. It reads the client and category
// registries but never mutates them.
type Service struct {
	store          Store
	tx             StoreTx
	clients        ClientDirectory
	categories     CategoryDirectory
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	ledgerMetrics  *ledgermetrics.Metrics
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

func WithLedgerMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) {
		s.ledgerMetrics = m
	}
}

// WithStoreTx sets the transactional boundary. The default serializes
// writers in process, which is only correct for the in-memory store.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(store Store, clients ClientDirectory, categories CategoryDirectory, opts ...Option) *Service {
	s := &Service{
		store:      store,
		clients:    clients,
		categories: categories,
		logger:     slog.Default(),
		tracer:     tracing.Tracer(resourceName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = &localTx{}
	}
	return s
}

// Create opens a transaction after confirming that its client and category
// exist. The history starts with the initial amount at the request time.
func (s *Service) Create(ctx context.Context, terms models.Terms) (_ *models.View, err error) {
	defer s.ledgerMetrics.ObserveOperation("create", time.Now())
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.Create")
	defer func() { tracing.End(span, err) }()

	t, err := models.NewTransaction(id.NewTransactionID(), terms, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	view, err := s.resolveReferences(ctx, t, true)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, s.translateWrite(err, "failed to create pawn transaction")
	}

	span.SetAttributes(attribute.String("transaction.id", t.ID.String()))
	s.ledgerMetrics.IncrementCreated()
	s.recordChange(ctx, audit.ActionCreated, "create", t.ID)
	return view, nil
}

func (s *Service) Get(ctx context.Context, txID id.TransactionID) (_ *models.View, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.Get", attribute.String("transaction.id", txID.String()))
	defer func() { tracing.End(span, err) }()

	t, err := s.store.FindByID(ctx, txID)
	if err != nil {
		return nil, translateLookup(err)
	}
	views, err := s.project(ctx, []*models.Transaction{t})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// List returns a page of transactions projected with client and category names.
func (s *Service) List(ctx context.Context, p query.Params) (_ query.Page[*models.View], err error) {
	defer s.ledgerMetrics.ObserveOperation("list", time.Now())
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.List")
	defer func() { tracing.End(span, err) }()

	f, err := models.ParseFilter(p)
	if err != nil {
		return query.Page[*models.View]{}, err
	}
	page, err := s.store.List(ctx, f, p)
	if err != nil {
		return query.Page[*models.View]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pawn transactions")
	}
	views, err := s.project(ctx, page.Items)
	if err != nil {
		return query.Page[*models.View]{}, err
	}
	return query.Page[*models.View]{Items: views, Pagination: page.Pagination}, nil
}

// Update overwrites the supplied scalar fields, then applies at most one price
// operation. An explicit history replaces the ledger as supplied and a
// supplied amount then overwrites the stored one; an amount on its own is
// appended.
func (s *Service) Update(ctx context.Context, txID id.TransactionID, patch models.Patch) (_ *models.View, err error) {
	defer s.ledgerMetrics.ObserveOperation("update", time.Now())
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.Update", attribute.String("transaction.id", txID.String()))
	defer func() { tracing.End(span, err) }()

	var priceAction audit.Action
	view, err := s.mutate(ctx, txID, func(t *models.Transaction, now time.Time) error {
		if err := t.Apply(patch, now); err != nil {
			return err
		}
		switch {
		case patch.ReplacesHistory():
			priceAction = audit.ActionHistoryReplaced
			if err := t.ReplaceHistory(patch.PriceHistory, now); err != nil {
				return err
			}
			if patch.Amount != nil {
				return t.SetAmount(*patch.Amount, now)
			}
		case patch.Amount != nil:
			priceAction = audit.ActionPriceAppended
			return t.AppendPrice(*patch.Amount, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordChange(ctx, audit.ActionUpdated, "update", txID)
	s.recordPriceChange(ctx, priceAction, txID)
	return view, nil
}

// AppendPrice records a new amount as the trailing history entry.
func (s *Service) AppendPrice(ctx context.Context, txID id.TransactionID, price decimal.Decimal) (_ *models.View, err error) {
	defer s.ledgerMetrics.ObserveOperation("append_price", time.Now())
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.AppendPrice", attribute.String("transaction.id", txID.String()))
	defer func() { tracing.End(span, err) }()

	view, err := s.mutate(ctx, txID, func(t *models.Transaction, now time.Time) error {
		return t.AppendPrice(price, now)
	})
	if err != nil {
		return nil, err
	}
	s.recordPriceChange(ctx, audit.ActionPriceAppended, txID)
	return view, nil
}

// ReplaceHistory swaps the whole price history. The stored history equals
// entries exactly.
func (s *Service) ReplaceHistory(ctx context.Context, txID id.TransactionID, entries []models.PriceEntry) (_ *models.View, err error) {
	defer s.ledgerMetrics.ObserveOperation("replace_history", time.Now())
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.ReplaceHistory", attribute.String("transaction.id", txID.String()))
	defer func() { tracing.End(span, err) }()

	view, err := s.mutate(ctx, txID, func(t *models.Transaction, now time.Time) error {
		return t.ReplaceHistory(entries, now)
	})
	if err != nil {
		return nil, err
	}
	s.recordPriceChange(ctx, audit.ActionHistoryReplaced, txID)
	return view, nil
}

func (s *Service) Delete(ctx context.Context, txID id.TransactionID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "pawn.Delete", attribute.String("transaction.id", txID.String()))
	defer func() { tracing.End(span, err) }()

	if err := s.store.Delete(ctx, txID); err != nil {
		return translateLookup(err)
	}
	s.recordChange(ctx, audit.ActionDeleted, "delete", txID)
	return nil
}

// mutate loads txID under the store transaction, lets fn change it, confirms
// any new client or category exists and writes it back.
func (s *Service) mutate(ctx context.Context, txID id.TransactionID, fn func(t *models.Transaction, now time.Time) error) (*models.View, error) {
	var view *models.View
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.store.FindByIDForUpdate(txCtx, txID)
		if err != nil {
			return translateLookup(err)
		}
		if err := fn(t, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		// txCtx may carry a single database connection, so no fan-out here.
		view, err = s.resolveReferences(txCtx, t, false)
		if err != nil {
			return err
		}
		if err := s.store.Update(txCtx, t); err != nil {
			return s.translateWrite(err, "failed to update pawn transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// resolveReferences looks up the client and category of t. A missing one is
// NotFound; the store's own reference check stays authoritative for deletes
// racing this lookup.
func (s *Service) resolveReferences(ctx context.Context, t *models.Transaction, concurrent bool) (*models.View, error) {
	clients, categories, err := s.lookup(ctx, []id.ClientID{t.ClientID}, []id.CategoryID{t.CategoryID}, concurrent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve transaction references")
	}

	client, ok := clients[t.ClientID]
	if !ok {
		s.ledgerMetrics.IncrementDanglingReferences()
		return nil, dErrors.New(dErrors.CodeNotFound, "Client not found")
	}
	category, ok := categories[t.CategoryID]
	if !ok {
		s.ledgerMetrics.IncrementDanglingReferences()
		return nil, dErrors.New(dErrors.CodeNotFound, "Category not found")
	}
	return &models.View{Transaction: t, CategoryName: category.CategoryName, ClientName: client.DisplayName()}, nil
}

// lookup loads clients and categories by id. With concurrent set the two
// directories are queried in parallel; callers inside a store transaction
// must pass false.
func (s *Service) lookup(ctx context.Context, clientIDs []id.ClientID, categoryIDs []id.CategoryID, concurrent bool) (
	clients map[id.ClientID]*clientmodels.Client,
	categories map[id.CategoryID]*categorymodels.Category,
	err error,
) {
	loadClients := func(ctx context.Context) (err error) {
		clients, err = s.clients.FindByIDs(ctx, clientIDs)
		return err
	}
	loadCategories := func(ctx context.Context) (err error) {
		categories, err = s.categories.FindByIDs(ctx, categoryIDs)
		return err
	}

	if !concurrent {
		if err := loadClients(ctx); err != nil {
			return nil, nil, err
		}
		if err := loadCategories(ctx); err != nil {
			return nil, nil, err
		}
		return clients, categories, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loadClients(gctx) })
	g.Go(func() error { return loadCategories(gctx) })
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return clients, categories, nil
}

// project batch-loads the names referenced by txs.
func (s *Service) project(ctx context.Context, txs []*models.Transaction) ([]*models.View, error) {
	clientIDs := make([]id.ClientID, 0, len(txs))
	categoryIDs := make([]id.CategoryID, 0, len(txs))
	seenClients := make(map[id.ClientID]struct{}, len(txs))
	seenCategories := make(map[id.CategoryID]struct{}, len(txs))
	for _, t := range txs {
		if _, ok := seenClients[t.ClientID]; !ok {
			seenClients[t.ClientID] = struct{}{}
			clientIDs = append(clientIDs, t.ClientID)
		}
		if _, ok := seenCategories[t.CategoryID]; !ok {
			seenCategories[t.CategoryID] = struct{}{}
			categoryIDs = append(categoryIDs, t.CategoryID)
		}
	}

	clients, categories, err := s.lookup(ctx, clientIDs, categoryIDs, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction references")
	}

	views := make([]*models.View, 0, len(txs))
	for _, t := range txs {
		v := &models.View{Transaction: t}
		if c, ok := clients[t.ClientID]; ok {
			v.ClientName = c.DisplayName()
		}
		if c, ok := categories[t.CategoryID]; ok {
			v.CategoryName = c.CategoryName
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) recordChange(ctx context.Context, action audit.Action, op string, txID id.TransactionID) {
	s.metrics.IncrementEntityOperation(resourceName, op)
	audit.Emit(ctx, s.auditPublisher, s.logger, audit.NewEvent(ctx, action, resourceName, txID.String()))
}

func (s *Service) recordPriceChange(ctx context.Context, action audit.Action, txID id.TransactionID) {
	switch action {
	case audit.ActionPriceAppended:
		s.ledgerMetrics.IncrementPriceAppends()
	case audit.ActionHistoryReplaced:
		s.ledgerMetrics.IncrementHistoryReplacements()
	default:
		return
	}
	audit.Emit(ctx, s.auditPublisher, s.logger, audit.NewEvent(ctx, action, resourceName, txID.String()))
}

func (s *Service) translateWrite(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return notFoundError()
	case errors.Is(err, sentinel.ErrDanglingReference):
		s.ledgerMetrics.IncrementDanglingReferences()
		return dErrors.New(dErrors.CodeNotFound, "Client or category not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return notFoundError()
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pawn transaction")
}

func notFoundError() error {
	return dErrors.New(dErrors.CodeNotFound, "Pawn transaction not found")
}

// localTx serializes mutations in process.
type localTx struct {
	mu sync.Mutex
}

func (t *localTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

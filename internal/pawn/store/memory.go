package store

import (
	"context"
	"sync"
	"time"

	"pawnshop/internal/pawn/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
)

// ClientRefs is the reference bookkeeping of the in-memory client store.
type ClientRefs interface {
	Retain(ctx context.Context, clientID id.ClientID) error
	Release(ctx context.Context, clientID id.ClientID)
}

// CategoryRefs is the reference bookkeeping of the in-memory category store.
type CategoryRefs interface {
	Retain(ctx context.Context, categoryID id.CategoryID) error
	Release(ctx context.Context, categoryID id.CategoryID)
}

var sortFields = map[string]query.Comparator[*models.Transaction]{
	"pawnDate":   func(a, b *models.Transaction) int { return a.PawnDate.Compare(b.PawnDate) },
	"returnDate": func(a, b *models.Transaction) int { return compareOptionalTime(a.ReturnDate, b.ReturnDate) },
	"amount":     func(a, b *models.Transaction) int { return a.Amount.Cmp(b.Amount) },
	"createdAt":  func(a, b *models.Transaction) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// compareOptionalTime orders a missing time after every present one, matching
// PostgreSQL's default NULL placement.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func byID(a, b *models.Transaction) int { return a.ID.Compare(b.ID) }

// InMemory keeps transactions in a map. Every stored transaction holds one
// reference on its client and one on its category, so the registries refuse
// to delete them. Lock order is ledger first, then registry.
type InMemory struct {
	mu           sync.RWMutex
	transactions map[id.TransactionID]*models.Transaction
	clients      ClientRefs
	categories   CategoryRefs
}

func NewInMemory(clients ClientRefs, categories CategoryRefs) *InMemory {
	return &InMemory{
		transactions: make(map[id.TransactionID]*models.Transaction),
		clients:      clients,
		categories:   categories,
	}
}

func (s *InMemory) Create(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.retain(ctx, t.ClientID, t.CategoryID); err != nil {
		return err
	}
	s.transactions[t.ID] = t.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, txID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// FindByIDForUpdate is FindByID; the in-memory StoreTx serializes writers.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	return s.FindByID(ctx, txID)
}

func (s *InMemory) List(_ context.Context, f models.Filter, p query.Params) (query.Page[*models.Transaction], error) {
	s.mu.RLock()
	items := make([]*models.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		items = append(items, t.Clone())
	}
	s.mu.RUnlock()

	return query.Apply(items, f.Matches, sortFields, byID, p), nil
}

// Update replaces the stored transaction, moving references when the client
// or category changed.
func (s *InMemory) Update(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	clientMoved := existing.ClientID != t.ClientID
	categoryMoved := existing.CategoryID != t.CategoryID
	if clientMoved {
		if err := s.clients.Retain(ctx, t.ClientID); err != nil {
			return err
		}
	}
	if categoryMoved {
		if err := s.categories.Retain(ctx, t.CategoryID); err != nil {
			if clientMoved {
				s.clients.Release(ctx, t.ClientID)
			}
			return err
		}
	}
	if clientMoved {
		s.clients.Release(ctx, existing.ClientID)
	}
	if categoryMoved {
		s.categories.Release(ctx, existing.CategoryID)
	}
	s.transactions[t.ID] = t.Clone()
	return nil
}

func (s *InMemory) Delete(ctx context.Context, txID id.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[txID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.transactions, txID)
	s.clients.Release(ctx, t.ClientID)
	s.categories.Release(ctx, t.CategoryID)
	return nil
}

func (s *InMemory) CountByClient(_ context.Context, clientID id.ClientID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.transactions {
		if t.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) CountByCategory(_ context.Context, categoryID id.CategoryID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.transactions {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) retain(ctx context.Context, clientID id.ClientID, categoryID id.CategoryID) error {
	if err := s.clients.Retain(ctx, clientID); err != nil {
		return err
	}
	if err := s.categories.Retain(ctx, categoryID); err != nil {
		s.clients.Release(ctx, clientID)
		return err
	}
	return nil
}

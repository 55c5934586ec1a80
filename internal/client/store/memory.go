package store

import (
	"cmp"
	"context"
	"sync"

	"pawnshop/internal/client/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
)

var sortFields = map[string]query.Comparator[*models.Client]{
	"firstName":      func(a, b *models.Client) int { return cmp.Compare(a.FirstName, b.FirstName) },
	"lastName":       func(a, b *models.Client) int { return cmp.Compare(a.LastName, b.LastName) },
	"passportNumber": func(a, b *models.Client) int { return cmp.Compare(a.PassportNumber, b.PassportNumber) },
	"createdAt":      func(a, b *models.Client) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func byID(a, b *models.Client) int { return a.ID.Compare(b.ID) }

// InMemory keeps clients in a map. The passport index and reference counts
// are guarded by the same lock as the records, so uniqueness and
// delete-while-referenced checks are atomic.
type InMemory struct {
	mu         sync.RWMutex
	clients    map[id.ClientID]*models.Client
	byPassport map[string]id.ClientID
	refs       map[id.ClientID]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		clients:    make(map[id.ClientID]*models.Client),
		byPassport: make(map[string]id.ClientID),
		refs:       make(map[id.ClientID]int),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byPassport[c.PassportNumber]; taken {
		return sentinel.ErrAlreadyUsed
	}
	stored := *c
	s.clients[c.ID] = &stored
	s.byPassport[c.PassportNumber] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemory) FindByPassportNumber(_ context.Context, number string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clientID, ok := s.byPassport[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.clients[clientID]
	return &out, nil
}

// FindByIDs returns the clients that exist among ids, keyed by id.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.ClientID) (map[id.ClientID]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ClientID]*models.Client, len(ids))
	for _, clientID := range ids {
		if c, ok := s.clients[clientID]; ok {
			cp := *c
			out[clientID] = &cp
		}
	}
	return out, nil
}

func (s *InMemory) List(_ context.Context, p query.Params) (query.Page[*models.Client], error) {
	s.mu.RLock()
	items := make([]*models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		cp := *c
		items = append(items, &cp)
	}
	s.mu.RUnlock()

	search := p.Filter("search")
	return query.Apply(items, func(c *models.Client) bool { return c.Matches(search) }, sortFields, byID, p), nil
}

func (s *InMemory) Update(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner, taken := s.byPassport[c.PassportNumber]; taken && owner != c.ID {
		return sentinel.ErrAlreadyUsed
	}
	delete(s.byPassport, existing.PassportNumber)
	stored := *c
	s.clients[c.ID] = &stored
	s.byPassport[c.PassportNumber] = c.ID
	return nil
}

func (s *InMemory) Delete(_ context.Context, clientID id.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.refs[clientID] > 0 {
		return sentinel.ErrReferenced
	}
	delete(s.byPassport, c.PassportNumber)
	delete(s.clients, clientID)
	delete(s.refs, clientID)
	return nil
}

// Retain records a reference from a pawn transaction. It fails with
// ErrDanglingReference when the client does not exist.
func (s *InMemory) Retain(_ context.Context, clientID id.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientID]; !ok {
		return sentinel.ErrDanglingReference
	}
	s.refs[clientID]++
	return nil
}

// Release drops a reference recorded by Retain.
func (s *InMemory) Release(_ context.Context, clientID id.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs[clientID] > 0 {
		s.refs[clientID]--
	}
}

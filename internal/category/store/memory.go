package store

import (
	"cmp"
	"context"
	"sync"

	"pawnshop/internal/category/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
)

var sortFields = map[string]query.Comparator[*models.Category]{
	"categoryName": func(a, b *models.Category) int { return cmp.Compare(a.CategoryName, b.CategoryName) },
	"createdAt":    func(a, b *models.Category) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func byID(a, b *models.Category) int { return a.ID.Compare(b.ID) }

// InMemory keeps categories in a map with a name index and reference counts
// under one lock.
type InMemory struct {
	mu         sync.RWMutex
	categories map[id.CategoryID]*models.Category
	byName     map[string]id.CategoryID
	refs       map[id.CategoryID]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		categories: make(map[id.CategoryID]*models.Category),
		byName:     make(map[string]id.CategoryID),
		refs:       make(map[id.CategoryID]int),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[c.CategoryName]; taken {
		return sentinel.ErrAlreadyUsed
	}
	stored := *c
	s.categories[c.ID] = &stored
	s.byName[c.CategoryName] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, categoryID id.CategoryID) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categoryID, ok := s.byName[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.categories[categoryID]
	return &out, nil
}

// FindByIDs returns the categories that exist among ids, keyed by id.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.CategoryID) (map[id.CategoryID]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.CategoryID]*models.Category, len(ids))
	for _, categoryID := range ids {
		if c, ok := s.categories[categoryID]; ok {
			cp := *c
			out[categoryID] = &cp
		}
	}
	return out, nil
}

func (s *InMemory) List(_ context.Context, p query.Params) (query.Page[*models.Category], error) {
	s.mu.RLock()
	items := make([]*models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		items = append(items, &cp)
	}
	s.mu.RUnlock()

	search := p.Filter("search")
	return query.Apply(items, func(c *models.Category) bool { return c.Matches(search) }, sortFields, byID, p), nil
}

func (s *InMemory) Update(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner, taken := s.byName[c.CategoryName]; taken && owner != c.ID {
		return sentinel.ErrAlreadyUsed
	}
	delete(s.byName, existing.CategoryName)
	stored := *c
	s.categories[c.ID] = &stored
	s.byName[c.CategoryName] = c.ID
	return nil
}

func (s *InMemory) Delete(_ context.Context, categoryID id.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.refs[categoryID] > 0 {
		return sentinel.ErrReferenced
	}
	delete(s.byName, c.CategoryName)
	delete(s.categories, categoryID)
	delete(s.refs, categoryID)
	return nil
}

// Retain records a reference from a pawn transaction. It fails with
// ErrDanglingReference when the category does not exist.
func (s *InMemory) Retain(_ context.Context, categoryID id.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[categoryID]; !ok {
		return sentinel.ErrDanglingReference
	}
	s.refs[categoryID]++
	return nil
}

// Release drops a reference recorded by Retain.
func (s *InMemory) Release(_ context.Context, categoryID id.CategoryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs[categoryID] > 0 {
		s.refs[categoryID]--
	}
}

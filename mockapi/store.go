package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/s0up4200/librarian/api"
)

// store is an in-memory api.Resource[T] with sequential identifiers
type store[T any] struct {
	backend *Backend
	noun    string

	mu    sync.RWMutex
	next  int64
	items map[int64]T

	setID    func(*T, int64)
	validate func(*T) error
	// resolve expands references before the entity is stored
	resolve func(context.Context, *T) error
}

func newStore[T any](b *Backend, noun string, setID func(*T, int64)) *store[T] {
	return &store[T]{
		backend: b,
		noun:    noun,
		next:    1,
		items:   make(map[int64]T),
		setID:   setID,
	}
}

func (s *store[T]) notFound(id int64) error {
	return &api.ServerError{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s %d not found (mock).", s.noun, id),
	}
}

func (s *store[T]) check(op string, v *T) error {
	if v == nil {
		return &api.ValidationError{Field: s.noun, Reason: "is required"}
	}
	if s.validate != nil {
		if err := s.validate(v); err != nil {
			return err
		}
	}
	s.backend.logger.Debug().Str("op", op).Str("resource", s.noun).Msg("Mock request")
	return nil
}

// List returns all entities ordered by identifier
func (s *store[T]) List(ctx context.Context) ([]T, error) {
	if err := s.backend.authorize(); err != nil {
		return nil, err
	}
	return s.filter(func(T) bool { return true }), nil
}

func (s *store[T]) filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v := s.items[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Find returns one entity
func (s *store[T]) Find(ctx context.Context, id int64) (*T, error) {
	if err := requireID(s.noun+" id", id); err != nil {
		return nil, err
	}
	if err := s.backend.authorize(); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *store[T]) get(id int64) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[id]
	if !ok {
		return nil, s.notFound(id)
	}
	return &v, nil
}

// Create stores v under the next identifier
func (s *store[T]) Create(ctx context.Context, v *T) (*T, error) {
	if err := s.check("create", v); err != nil {
		return nil, err
	}
	if err := s.backend.authorize(); err != nil {
		return nil, err
	}
	return s.insert(ctx, *v)
}

func (s *store[T]) insert(ctx context.Context, v T) (*T, error) {
	if s.resolve != nil {
		if err := s.resolve(ctx, &v); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.setID(&v, id)
	s.items[id] = v
	return &v, nil
}

// Update replaces the entity stored under id
func (s *store[T]) Update(ctx context.Context, id int64, v *T) (*T, error) {
	if err := requireID(s.noun+" id", id); err != nil {
		return nil, err
	}
	if err := s.check("update", v); err != nil {
		return nil, err
	}
	if err := s.backend.authorize(); err != nil {
		return nil, err
	}

	return s.replace(ctx, id, *v)
}

// replace resolves references and stores value under an existing id
func (s *store[T]) replace(ctx context.Context, id int64, value T) (*T, error) {
	if s.resolve != nil {
		if err := s.resolve(ctx, &value); err != nil {
			return nil, err
		}
	}
	return s.put(id, value)
}

// put stores value under an existing id
func (s *store[T]) put(id int64, value T) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return nil, s.notFound(id)
	}
	s.setID(&value, id)
	s.items[id] = value
	return &value, nil
}

// modify applies fn to the stored entity under the lock
func (s *store[T]) modify(id int64, fn func(*T) error) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[id]
	if !ok {
		return nil, s.notFound(id)
	}
	if err := fn(&v); err != nil {
		return nil, err
	}
	s.items[id] = v
	return &v, nil
}

// Delete removes the entity stored under id
func (s *store[T]) Delete(ctx context.Context, id int64) error {
	if err := requireID(s.noun+" id", id); err != nil {
		return err
	}
	if err := s.backend.authorize(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return s.notFound(id)
	}
	delete(s.items, id)
	return nil
}

func requireID(field string, id int64) error {
	if id <= 0 {
		return &api.ValidationError{Field: field, Reason: "must be a positive identifier"}
	}
	return nil
}

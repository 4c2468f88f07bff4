// Package memory provides an in-memory watch store for local development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dealwatch/pricewatch/internal/id/uuid"
	"github.com/dealwatch/pricewatch/internal/watch"
)

// Store keeps watch requests in a mutex-guarded map.
type Store struct {
	mu       sync.Mutex
	ids      watch.IDGenerator
	requests map[string]watch.Request
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		ids:      uuid.New(),
		requests: make(map[string]watch.Request),
	}
}

// Create assigns an id and stores the request.
func (s *Store) Create(_ context.Context, req watch.Request) (watch.Request, error) {
	if err := req.Validate(); err != nil {
		return watch.Request{}, fmt.Errorf("validate watch request: %w", err)
	}
	id, err := s.ids.NewID()
	if err != nil {
		return watch.Request{}, fmt.Errorf("generate watch id: %w", err)
	}
	req.ID = id
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return req, nil
}

// ListAll returns a snapshot of all requests, oldest first.
func (s *Store) ListAll(_ context.Context) ([]watch.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]watch.Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteByID removes a request; a missing id is a no-op.
func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, id)
	return nil
}

// Close releases nothing; it satisfies the store contract.
func (s *Store) Close() {}

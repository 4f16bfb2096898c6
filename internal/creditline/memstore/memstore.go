// Package memstore is an in-memory creditline.Repository. It gives the same
// guarantees as the PostgreSQL store: conditional updates on version and at
// most one open line per user and partner.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

type Store struct {
	mu    sync.RWMutex
	lines map[uuid.UUID]*creditline.CreditLine
}

func New() *Store {
	return &Store{lines: make(map[uuid.UUID]*creditline.CreditLine)}
}

func (s *Store) Create(_ context.Context, line *creditline.CreditLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[line.ID]; ok {
		return creditline.ErrConcurrentModification
	}

	if line.Status.Open() && s.findOpen(line.UserID, line.Partner) != nil {
		return creditline.ErrDuplicateActiveLine
	}

	s.lines[line.ID] = line.Clone()

	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*creditline.CreditLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line, ok := s.lines[id]
	if !ok {
		return nil, creditline.ErrNotFound
	}

	return line.Clone(), nil
}

func (s *Store) Update(_ context.Context, line *creditline.CreditLine, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.lines[line.ID]
	if !ok {
		return creditline.ErrNotFound
	}

	if current.Version != expectedVersion {
		return creditline.ErrConcurrentModification
	}

	if line.Status.Open() && !current.Status.Open() {
		if other := s.findOpen(line.UserID, line.Partner); other != nil && other.ID != line.ID {
			return creditline.ErrDuplicateActiveLine
		}
	}

	s.lines[line.ID] = line.Clone()

	return nil
}

func (s *Store) FindOpen(_ context.Context, userID string, partner creditline.Partner) (*creditline.CreditLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line := s.findOpen(userID, partner)
	if line == nil {
		return nil, creditline.ErrNotFound
	}

	return line.Clone(), nil
}

func (s *Store) findOpen(userID string, partner creditline.Partner) *creditline.CreditLine {
	for _, line := range s.lines {
		if line.UserID == userID && line.Partner == partner && line.Status.Open() {
			return line
		}
	}

	return nil
}

// List returns matching lines newest first.
func (s *Store) List(_ context.Context, filter creditline.ListFilter) ([]*creditline.CreditLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*creditline.CreditLine

	for _, line := range s.lines {
		if filter.UserID != "" && line.UserID != filter.UserID {
			continue
		}

		if filter.Status != nil && line.Status != *filter.Status {
			continue
		}

		if filter.Partner != nil && line.Partner != *filter.Partner {
			continue
		}

		out = append(out, line.Clone())
	}

	slices.SortFunc(out, func(a, b *creditline.CreditLine) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return out, nil
}

// ListSweepCandidates returns lines that are active or still have
// outstanding installments.
func (s *Store) ListSweepCandidates(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID

	for id, line := range s.lines {
		if line.Status == creditline.StatusActive || line.OutstandingBalance() > 0 {
			ids = append(ids, id)
		}
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})

	return ids, nil
}

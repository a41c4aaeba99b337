package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/core"
)

// Store keeps records and profiles in process memory.
type Store struct {
	mu       sync.Mutex
	items    []core.Record
	profiles map[string]core.Profile
	now      func() time.Time
}

func New() *Store {
	return &Store{profiles: map[string]core.Profile{}, now: time.Now}
}

// Save validates and stores the record, assigning an id and creation time
// when missing.
func (s *Store) Save(_ context.Context, r core.Record) (string, error) {
	if r.Status == "" {
		r.Status = core.StatusPending
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.items = append(s.items, r)
	return r.ID, nil
}

func (s *Store) ListRecords(_ context.Context, owner string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Record
	for _, r := range s.items {
		if owner == "" || r.Owner == owner {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status core.Status) error {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
}

func (s *Store) GetProfile(_ context.Context, owner string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[owner]
	if !ok {
		return core.Profile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, owner)
	}
	return p, nil
}

// SaveProfile normalizes, validates and replaces the owner's profile.
func (s *Store) SaveProfile(_ context.Context, owner string, p core.Profile) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now().UTC()
	s.profiles[owner] = p
	return nil
}

func (s *Store) Close() error { return nil }

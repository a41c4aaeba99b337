// Package session keeps in-progress invoices between requests. Each session
// owns one invoice aggregate and admits one writer at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/cache"
	"invoicer/internal/invoice"
	"invoicer/internal/log"
)

var ErrNotFound = errors.New("session not found")

type session struct {
	mu        sync.Mutex
	id        string
	owner     string
	createdAt time.Time
	inv       *invoice.Invoice
	ended     bool
}

// Info is a read-only view of a session.
type Info struct {
	ID        string           `json:"id"`
	Owner     string           `json:"owner,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	Invoice   invoice.Snapshot `json:"invoice"`
}

type Manager struct {
	sessions *cache.LRUCache[*session]
	logger   *log.Logger
	now      func() time.Time
}

// NewManager keeps at most max sessions, each expiring after ttl without
// activity. Expired sessions are discarded without producing an artifact.
func NewManager(max int, ttl time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	m := &Manager{
		sessions: cache.NewLRUCache[*session](max, ttl),
		logger:   logger.WithComponent(log.ComponentSession),
		now:      time.Now,
	}
	m.sessions.OnEvict(func(id string, s *session) {
		m.logger.Info("Composition session discarded", log.FieldSessionID, id, log.FieldOwner, s.owner)
	})
	return m
}

// Cleaner exposes the backing cache for periodic expiry sweeps.
func (m *Manager) Cleaner() cache.Cleaner { return m.sessions }

func (m *Manager) Len() int { return m.sessions.Size() }

// Create starts a session holding a fresh invoice.
func (m *Manager) Create(ctx context.Context, owner string) Info {
	s := &session{
		id:        uuid.NewString(),
		owner:     owner,
		createdAt: m.now().UTC(),
		inv:       invoice.New(),
	}
	m.sessions.Set(s.id, s)
	m.logger.InfoContext(ctx, "Composition session started", log.NewFields().WithSession(s.id, owner).ToSlice()...)
	return s.info()
}

func (m *Manager) Get(id, owner string) (Info, error) {
	s, err := m.lookup(id, owner)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return Info{}, ErrNotFound
	}
	return s.info(), nil
}

// Update runs fn with exclusive access to the session's invoice. The
// invoice operations are atomic, so a failed fn leaves the prior state.
func (m *Manager) Update(id, owner string, fn func(*invoice.Invoice) error) (Info, error) {
	s, err := m.lookup(id, owner)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return Info{}, ErrNotFound
	}
	if err := fn(s.inv); err != nil {
		return Info{}, err
	}
	m.sessions.Touch(id)
	return s.info(), nil
}

// Finish runs fn on a snapshot and ends the session only if fn succeeds.
func (m *Manager) Finish(id, owner string, fn func(invoice.Snapshot) error) error {
	s, err := m.lookup(id, owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return ErrNotFound
	}
	if err := fn(s.inv.Snapshot()); err != nil {
		return err
	}
	s.ended = true
	m.sessions.Delete(id)
	return nil
}

// End discards the session without producing anything.
func (m *Manager) End(id, owner string) error {
	s, err := m.lookup(id, owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	m.sessions.Delete(id)
	return nil
}

// lookup hides sessions of other owners behind ErrNotFound.
func (m *Manager) lookup(id, owner string) (*session, error) {
	s, ok := m.sessions.Get(id)
	if !ok || s.owner != owner {
		return nil, ErrNotFound
	}
	return s, nil
}

func (s *session) info() Info {
	return Info{ID: s.id, Owner: s.owner, CreatedAt: s.createdAt, Invoice: s.inv.Snapshot()}
}

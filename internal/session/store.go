package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultTTL = 2 * time.Hour

type entry struct {
	mu       sync.Mutex
	state    State
	lastSeen time.Time
	deleted  bool
}

// Store keeps sessions in memory. Operations on one session run one at a
// time; different sessions proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[uuid.UUID]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Create(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.ID] = &entry{state: state.clone(), lastSeen: s.now()}
}

func (s *Store) lookup(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Store) expired(e *entry) bool {
	return s.now().Sub(e.lastSeen) > s.ttl
}

func (s *Store) remove(id uuid.UUID, e *entry) {
	e.deleted = true
	s.mu.Lock()
	if cur, ok := s.sessions[id]; ok && cur == e {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}

func (s *Store) Get(id uuid.UUID) (State, error) {
	e, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return State{}, ErrSessionNotFound
	}
	if s.expired(e) {
		s.remove(id, e)
		return State{}, ErrSessionNotFound
	}
	return e.state.clone(), nil
}

// Update runs fn on a copy of the session state and stores the result when
// fn returns nil. The session stays locked while fn runs.
func (s *Store) Update(id uuid.UUID, fn func(*State) error) (State, error) {
	e, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return State{}, ErrSessionNotFound
	}
	if s.expired(e) {
		s.remove(id, e)
		return State{}, ErrSessionNotFound
	}

	next := e.state.clone()
	if err := fn(&next); err != nil {
		return e.state.clone(), err
	}
	next.UpdatedAt = s.now()
	e.state = next
	e.lastSeen = next.UpdatedAt
	return next.clone(), nil
}

func (s *Store) Delete(id uuid.UUID) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrSessionNotFound
	}
	s.remove(id, e)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops idle sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		e, err := s.lookup(id)
		if err != nil {
			continue
		}
		// Sessions busy with a request are not idle.
		if !e.mu.TryLock() {
			continue
		}
		if !e.deleted && s.expired(e) {
			s.remove(id, e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// RunJanitor sweeps expired sessions until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// MemoryStore is a mutex-guarded in-process Store. Expired sessions are
// dropped when touched and swept on every Create.
type MemoryStore struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	state    domain.InputState
	lastSeen time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl disables expiry; a nil
// clock uses real time.
func NewMemoryStore(ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Create(_ context.Context, state domain.InputState) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.sweep(now)

	id := newID()
	s.sessions[id] = &memoryEntry{state: state, lastSeen: now}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.InputState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(id)
	if err != nil {
		return domain.InputState{}, err
	}
	return e.state, nil
}

func (s *MemoryStore) Put(_ context.Context, id string, state domain.InputState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(id)
	if err != nil {
		return err
	}
	e.state = state
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	if s.expired(e, s.clock.Now()) {
		return ErrNotFound
	}
	return nil
}

// Len counts live sessions.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(s.clock.Now())
	return len(s.sessions), nil
}

func (s *MemoryStore) Close() error { return nil }

// live returns the entry for id and refreshes its idle timer. Caller holds mu.
func (s *MemoryStore) live(id string) (*memoryEntry, error) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.clock.Now()
	if s.expired(e, now) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	e.lastSeen = now
	return e, nil
}

func (s *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
		}
	}
}

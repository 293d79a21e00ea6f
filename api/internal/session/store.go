package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

const defaultCleanupInterval = 5 * time.Minute

type entry struct {
	state     *State
	expiredAt time.Time
}

// StoreOpt configures a Store.
type StoreOpt func(*Store)

// WithTTL sets the idle lifetime. Zero keeps sessions until deleted.
func WithTTL(ttl time.Duration) StoreOpt {
	return func(s *Store) { s.ttl = ttl }
}

func WithCleanupInterval(d time.Duration) StoreOpt {
	return func(s *Store) { s.cleanupInterval = d }
}

// WithOnEvict registers a callback run for every removed session, expired or
// deleted.
func WithOnEvict(fn func(id string)) StoreOpt {
	return func(s *Store) { s.onEvict = fn }
}

// Store holds sessions in memory. Access refreshes a session's TTL.
type Store struct {
	mu    sync.Mutex
	items map[string]*entry

	opts            Options
	ttl             time.Duration
	cleanupInterval time.Duration
	onEvict         func(id string)
	now             func() time.Time

	cleanupDone chan struct{}
	once        sync.Once
}

func NewStore(o Options, opts ...StoreOpt) *Store {
	s := &Store{
		items:       make(map[string]*entry),
		opts:        o,
		now:         time.Now,
		cleanupDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cleanupInterval <= 0 && s.ttl > 0 {
		s.cleanupInterval = defaultCleanupInterval
	}
	if s.cleanupInterval > 0 {
		s.startCleanup()
	}
	return s
}

func (s *Store) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

func (s *Store) expired(e *entry) bool {
	return !e.expiredAt.IsZero() && s.now().After(e.expiredAt)
}

// Create starts a session under a fresh random id.
func (s *Store) Create() (string, *State) {
	id := uuid.NewString()
	st := NewState(s.opts)
	s.mu.Lock()
	s.items[id] = &entry{state: st, expiredAt: s.expiry()}
	s.mu.Unlock()
	return id, st
}

// Get returns a live session or ErrNotFound.
func (s *Store) Get(id string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || s.expired(e) {
		return nil, ErrNotFound
	}
	e.expiredAt = s.expiry()
	return e.state, nil
}

// GetOrCreate returns the session for id, starting a new one if needed.
func (s *Store) GetOrCreate(id string) *State {
	s.mu.Lock()
	e, ok := s.items[id]
	if ok && !s.expired(e) {
		e.expiredAt = s.expiry()
		s.mu.Unlock()
		return e.state
	}
	e = &entry{state: NewState(s.opts), expiredAt: s.expiry()}
	s.items[id] = e
	s.mu.Unlock()
	if ok && s.onEvict != nil {
		s.onEvict(id)
	}
	return e.state
}

// Delete ends a session. It reports whether one existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if ok && s.onEvict != nil {
		s.onEvict(id)
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) cleanupExpired() {
	var gone []string
	s.mu.Lock()
	for id, e := range s.items {
		if s.expired(e) {
			delete(s.items, id)
			gone = append(gone, id)
		}
	}
	s.mu.Unlock()
	if s.onEvict != nil {
		for _, id := range gone {
			s.onEvict(id)
		}
	}
}

func (s *Store) startCleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cleanupExpired()
			case <-s.cleanupDone:
				return
			}
		}
	}()
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.cleanupDone)
	})
	return nil
}

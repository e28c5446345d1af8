package approvals

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds how many confirmations can be outstanding at once.
const DefaultCapacity = 1024

// tombstoneTTL is how long a resolved id is remembered for error messages.
const tombstoneTTL = 15 * time.Minute

// Store is the in-memory table of pending confirmations, safe for concurrent
// use. Deadlines are checked against the injected clock on every access;
// the LRU's own expiry only reclaims memory.
type Store struct {
	mu       sync.Mutex
	pending  *expirable.LRU[string, *Pending]
	resolved *expirable.LRU[string, Status]
	now      func() time.Time
}

// NewStore returns a store holding at most capacity entries for roughly ttl.
// A nil clock uses time.Now.
func NewStore(capacity int, ttl time.Duration, now func() time.Time) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		// Kept for twice the TTL so a late click reports "expired" rather
		// than "not found".
		pending:  expirable.NewLRU[string, *Pending](capacity, nil, 2*ttl),
		resolved: expirable.NewLRU[string, Status](capacity, nil, tombstoneTTL),
		now:      now,
	}
}

// Put inserts p.
func (s *Store) Put(p *Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Add(p.ID, p)
}

// lookup returns the live entry for id. Callers hold s.mu.
func (s *Store) lookup(id string) (*Pending, error) {
	p, ok := s.pending.Get(id)
	if !ok {
		switch st, seen := s.resolved.Get(id); {
		case !seen:
			return nil, ErrNotFound
		case st == StatusExpired:
			return nil, ErrExpired
		default:
			return nil, ErrAlreadyResolved
		}
	}
	if p.ExpiredAt(s.now()) {
		s.retire(id, StatusExpired)
		return nil, ErrExpired
	}
	return p, nil
}

func (s *Store) retire(id string, st Status) {
	s.pending.Remove(id)
	s.resolved.Add(id, st)
}

// Resolve atomically checks and removes the entry for id. When check
// returns an error the entry stays pending and the error is returned.
func (s *Store) Resolve(id string, st Status, check func(*Pending) error) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(p); err != nil {
			return nil, err
		}
	}
	s.retire(id, st)
	return p, nil
}

// Expire retires id if its deadline has passed and reports whether it did.
func (s *Store) Expire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending.Peek(id)
	if !ok || !p.ExpiredAt(s.now()) {
		return false
	}
	s.retire(id, StatusExpired)
	return true
}

// Sweep retires every entry past its deadline and returns how many it
// removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, id := range s.pending.Keys() {
		if p, ok := s.pending.Peek(id); ok && p.ExpiredAt(now) {
			s.retire(id, StatusExpired)
			n++
		}
	}
	return n
}

// Len returns the number of entries held, expired ones not yet swept
// included.
func (s *Store) Len() int {
	return s.pending.Len()
}

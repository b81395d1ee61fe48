// README: Pending table of in-flight matches keyed by request id.
package matching

import (
	"sync"

	"ridematch/internal/types"
)

type Store struct {
	mu      sync.Mutex
	matches map[types.ID]*Match
}

func NewStore() *Store {
	return &Store{matches: make(map[types.ID]*Match)}
}

// Insert adds m unless a match with the same id is already pending.
func (s *Store) Insert(m *Match) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID()]; ok {
		return false
	}
	s.matches[m.ID()] = m
	return true
}

// Remove deletes the entry only if it is still m.
func (s *Store) Remove(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.matches[m.ID()]; ok && cur == m {
		delete(s.matches, m.ID())
	}
}

func (s *Store) Get(id types.ID) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	return m, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// All returns the pending matches in no particular order.
func (s *Store) All() []*Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	return out
}

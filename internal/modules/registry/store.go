// README: Connection registry; driver id to live channel, presence only.
package registry

import (
	"sync"

	"ridematch/internal/types"
)

type Store struct {
	mu    sync.RWMutex
	conns map[types.ID]Channel
}

func NewStore() *Store {
	return &Store{conns: make(map[types.ID]Channel)}
}

// Register maps id to ch, replacing any previous channel.
func (s *Store) Register(id types.ID, ch Channel) {
	s.mu.Lock()
	s.conns[id] = ch
	s.mu.Unlock()
}

// Deregister removes id. Absent ids are ignored.
func (s *Store) Deregister(id types.ID) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

// DeregisterIf removes id only while it still maps to ch, so a socket that
// closes after its driver reconnected does not evict the new connection.
// It reports whether an entry was removed.
func (s *Store) DeregisterIf(id types.ID, ch Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.conns[id]
	if !ok || cur != ch {
		return false
	}
	delete(s.conns, id)
	return true
}

func (s *Store) Lookup(id types.ID) (Channel, bool) {
	s.mu.RLock()
	ch, ok := s.conns[id]
	s.mu.RUnlock()
	return ch, ok
}

// Connected reports whether id has a live channel.
func (s *Store) Connected(id types.ID) bool {
	_, ok := s.Lookup(id)
	return ok
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// README: Driver status store; in-memory last-write-wins map with optional GEO mirror.
package location

import (
	"sync"

	"ridematch/internal/types"
)

type Store struct {
	mu       sync.RWMutex
	statuses map[types.ID]AgentStatus
}

func NewStore() *Store {
	return &Store{statuses: make(map[types.ID]AgentStatus)}
}

// Set overwrites the status for s.DriverID unconditionally.
func (st *Store) Set(s AgentStatus) {
	st.mu.Lock()
	st.statuses[s.DriverID] = s
	st.mu.Unlock()
}

func (st *Store) Get(id types.ID) (AgentStatus, bool) {
	st.mu.RLock()
	s, ok := st.statuses[id]
	st.mu.RUnlock()
	return s, ok
}

// List returns a copy of every status that passes keep. A nil keep returns all.
func (st *Store) List(keep func(AgentStatus) bool) []AgentStatus {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]AgentStatus, 0, len(st.statuses))
	for _, s := range st.statuses {
		if keep == nil || keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// README: Dispatch domain types; requests, candidates, match states and engine errors.
package matching

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"ridematch/internal/modules/advice"
	"ridematch/internal/protocol"
	"ridematch/internal/types"
)

var (
	ErrNotFound   = errors.New("request not pending")
	ErrDuplicate  = errors.New("request already pending")
	ErrClosed     = errors.New("dispatch engine closed")
	ErrBadRequest = errors.New("invalid request")
)

type State string

const (
	StateRanking   State = "ranking"
	StateAwaiting  State = "awaiting_response"
	StateResolved  State = "resolved"
	StateExhausted State = "exhausted"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further attempts follow this state.
func (s State) Terminal() bool {
	switch s {
	case StateResolved, StateExhausted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Request is a customer's ride request. Advice is only ever set on the
// per-attempt copy sent to a driver.
type Request struct {
	ID           types.ID      `json:"request_id"`
	CustomerID   types.ID      `json:"customer_id"`
	From         types.Place   `json:"from_location"`
	To           types.Place   `json:"to_location"`
	DurationMins float64       `json:"duration_mins"`
	Price        float64       `json:"price"`
	Advice       advice.Advice `json:"advice,omitempty"`
}

func (r Request) Validate() error {
	if r.CustomerID == "" {
		return fmt.Errorf("%w: customer_id is required", ErrBadRequest)
	}
	if !validPoint(r.From.Point) || !validPoint(r.To.Point) {
		return fmt.Errorf("%w: coordinates out of range", ErrBadRequest)
	}
	if r.Price < 0 || math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
		return fmt.Errorf("%w: price must be a non-negative number", ErrBadRequest)
	}
	if r.DurationMins < 0 || math.IsNaN(r.DurationMins) || math.IsInf(r.DurationMins, 0) {
		return fmt.Errorf("%w: duration_mins must be a non-negative number", ErrBadRequest)
	}
	return nil
}

func validPoint(p types.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (r Request) trip() advice.Trip {
	return advice.Trip{
		Price:        r.Price,
		DurationMins: r.DurationMins,
		Origin:       r.From.Point,
		Destination:  r.To.Point,
	}
}

func (r Request) offer() protocol.OfferRequest {
	return protocol.OfferRequest{
		RequestID:    r.ID,
		CustomerID:   r.CustomerID,
		FromLocation: r.From,
		ToLocation:   r.To,
		DurationMins: r.DurationMins,
		Price:        r.Price,
		Advice:       string(r.Advice),
	}
}

// Candidate is a driver considered for a request, fixed at arrival.
type Candidate struct {
	DriverID   types.ID `json:"driver_id"`
	DistanceKm float64  `json:"distance_km"`
}

type eventKind int

// eventQueue bounds the answers buffered for one match.
const eventQueue = 32

const (
	eventAccept eventKind = iota
	eventDeny
	eventGone
)

func (k eventKind) String() string {
	switch k {
	case eventAccept:
		return "accept"
	case eventDeny:
		return "deny"
	default:
		return "agent_gone"
	}
}

// event names the driver it refers to so a late answer to an earlier attempt
// can be told apart from the current one.
type event struct {
	kind     eventKind
	driverID types.ID
}

// Match is the in-flight state of one request. Only the owning goroutine
// mutates it; accessors are safe for observers.
type Match struct {
	req        Request
	candidates []Candidate
	created    time.Time

	events chan event
	done   chan struct{}

	// owned by the dispatch goroutine
	timer *time.Timer
	tried map[types.ID]struct{}

	mu        sync.RWMutex
	state     State
	current   types.ID
	attempted []types.ID
}

func newMatch(req Request, candidates []Candidate, now time.Time) *Match {
	return &Match{
		req:        req,
		candidates: candidates,
		created:    now,
		events:     make(chan event, eventQueue),
		done:       make(chan struct{}),
		tried:      make(map[types.ID]struct{}, len(candidates)),
		state:      StateRanking,
	}
}

func (m *Match) ID() types.ID         { return m.req.ID }
func (m *Match) Request() Request     { return m.req }
func (m *Match) CreatedAt() time.Time { return m.created }

// Candidates returns the ranking computed when the request arrived.
func (m *Match) Candidates() []Candidate {
	out := make([]Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out
}

func (m *Match) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Agent is the driver holding the outstanding offer, or the winner once
// resolved. Empty otherwise.
func (m *Match) Agent() types.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Attempted lists drivers already tried, in attempt order.
func (m *Match) Attempted() []types.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ID, len(m.attempted))
	copy(out, m.attempted)
	return out
}

// Done is closed once the match reaches a terminal state.
func (m *Match) Done() <-chan struct{} { return m.done }

// Snapshot is a point-in-time view for monitoring.
type Snapshot struct {
	RequestID  types.ID    `json:"request_id"`
	CustomerID types.ID    `json:"customer_id"`
	State      State       `json:"state"`
	Agent      types.ID    `json:"current_driver,omitempty"`
	Attempted  []types.ID  `json:"attempted"`
	Candidates []Candidate `json:"candidates"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (m *Match) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attempted := make([]types.ID, len(m.attempted))
	copy(attempted, m.attempted)
	return Snapshot{
		RequestID:  m.req.ID,
		CustomerID: m.req.CustomerID,
		State:      m.state,
		Agent:      m.current,
		Attempted:  attempted,
		Candidates: m.Candidates(),
		CreatedAt:  m.created,
	}
}

// next returns the best candidate not yet tried.
func (m *Match) next() (Candidate, bool) {
	for _, c := range m.candidates {
		if _, ok := m.tried[c.DriverID]; !ok {
			return c, true
		}
	}
	return Candidate{}, false
}

func (m *Match) markAttempted(id types.ID) {
	if _, ok := m.tried[id]; ok {
		return
	}
	m.tried[id] = struct{}{}
	m.mu.Lock()
	m.attempted = append(m.attempted, id)
	m.mu.Unlock()
}

func (m *Match) await(id types.ID, timeout time.Duration) {
	m.mu.Lock()
	m.state = StateAwaiting
	m.current = id
	m.mu.Unlock()
	m.timer = time.NewTimer(timeout)
}

// clear drops the outstanding attempt and its timer in one step.
func (m *Match) clear() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Lock()
	m.current = ""
	m.state = StateRanking
	m.mu.Unlock()
}

func (m *Match) outstanding() types.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// terminate sets the final state once. Waiters are released separately by
// release so bookkeeping can happen first.
func (m *Match) terminate(s State, winner types.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return false
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.state = s
	m.current = winner
	return true
}

func (m *Match) release() {
	close(m.done)
}

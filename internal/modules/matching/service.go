// README: Dispatch engine; one goroutine per pending request walks the ranked drivers.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ridematch/internal/config"
	"ridematch/internal/modules/advice"
	"ridematch/internal/modules/location"
	"ridematch/internal/modules/registry"
	"ridematch/internal/protocol"
	"ridematch/internal/types"
)

const defaultSendTimeout = 5 * time.Second

// StatusReader is the slice of the status store the engine needs.
type StatusReader interface {
	Status(id types.ID) (location.AgentStatus, bool)
	ListAvailable() []location.AgentStatus
}

// Directory resolves a driver to its live channel.
type Directory interface {
	Lookup(id types.ID) (registry.Channel, bool)
}

type Advisor interface {
	Advise(pos types.Point, trip advice.Trip) (advice.Advice, error)
}

type Engine struct {
	statuses StatusReader
	channels Directory
	advisor  Advisor
	cfg      config.MatchingConfig
	metrics  *Metrics
	log      zerolog.Logger

	pending     *Store
	sendTimeout time.Duration
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewEngine builds a dispatch engine. metrics may be nil.
func NewEngine(statuses StatusReader, channels Directory, advisor Advisor, cfg config.MatchingConfig, metrics *Metrics, log zerolog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		statuses:    statuses,
		channels:    channels,
		advisor:     advisor,
		cfg:         cfg,
		metrics:     metrics,
		log:         log,
		pending:     NewStore(),
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit ranks the available drivers and dispatches the first offer. It
// returns once that offer is out or the match has already ended. A scoring
// configuration error ends the match as failed and is returned.
//
// Offers are bound to the engine's lifetime, not the caller's: a submitter
// that goes away after calling Submit does not cancel the match.
func (e *Engine) Submit(_ context.Context, req Request) (*Match, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = types.ID(uuid.NewString())
	}
	req.Advice = ""

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	m := newMatch(req, Rank(req, e.statuses.ListAvailable()), e.now())
	if !e.pending.Insert(m) {
		e.wg.Done()
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, req.ID)
	}
	e.metrics.setPending(e.pending.Len())

	log := e.matchLogger(m)
	log.Info().Int("candidates", len(m.candidates)).Msg("request submitted")

	if err := e.advance(m, log); err != nil {
		e.wg.Done()
		return m, err
	}
	if m.State().Terminal() {
		e.wg.Done()
		return m, nil
	}
	go e.run(m, log)
	return m, nil
}

// Respond routes a driver's answer to the request's dispatch goroutine.
// Answers from drivers other than the outstanding one are ignored there.
func (e *Engine) Respond(requestID, driverID types.ID, d protocol.Decision) error {
	m, ok := e.pending.Get(requestID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	kind := eventDeny
	if d == protocol.Accept {
		kind = eventAccept
	}
	e.post(m, event{kind: kind, driverID: driverID})
	return nil
}

// AgentGone tells every match waiting on driverID that it disconnected.
func (e *Engine) AgentGone(driverID types.ID) {
	for _, m := range e.pending.All() {
		if m.outstanding() == driverID {
			e.post(m, event{kind: eventGone, driverID: driverID})
		}
	}
}

func (e *Engine) Get(requestID types.ID) (*Match, bool) {
	return e.pending.Get(requestID)
}

func (e *Engine) Pending() int {
	return e.pending.Len()
}

// List snapshots every pending match.
func (e *Engine) List() []Snapshot {
	all := e.pending.All()
	out := make([]Snapshot, 0, len(all))
	for _, m := range all {
		out = append(out, m.Snapshot())
	}
	return out
}

// Close cancels every pending match and waits for their goroutines.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}

// post hands ev to the match goroutine without blocking the caller, which is
// usually a driver's read loop. The queue only fills while the goroutine is
// busy delivering an offer; overflow is dropped and counted as a near miss.
func (e *Engine) post(m *Match, ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	default:
		e.metrics.nearMiss()
		log := e.matchLogger(m)
		log.Debug().Str("driver_id", string(ev.driverID)).Str("event", ev.kind.String()).
			Msg("near miss; event queue full")
	}
}

// run owns m until it terminates. Every outcome for the match is applied
// here, one at a time.
func (e *Engine) run(m *Match, log zerolog.Logger) {
	defer e.wg.Done()
	for {
		var expired <-chan time.Time
		if m.timer != nil {
			expired = m.timer.C
		}

		select {
		case <-e.ctx.Done():
			e.finish(m, StateCancelled, "", log)
			return

		case ev := <-m.events:
			current := m.outstanding()
			if current == "" || ev.driverID != current {
				e.metrics.nearMiss()
				log.Debug().Str("driver_id", string(ev.driverID)).Str("event", ev.kind.String()).
					Str("current_driver", string(current)).Msg("near miss; stale answer ignored")
				continue
			}
			if ev.kind == eventAccept {
				e.finish(m, StateResolved, current, log)
				return
			}
			m.clear()
			log.Info().Str("driver_id", string(current)).Str("event", ev.kind.String()).Msg("offer declined")

		case <-expired:
			current := m.outstanding()
			m.clear()
			e.metrics.timeout()
			log.Info().Str("driver_id", string(current)).Dur("timeout", e.cfg.ResponseTimeout).Msg("offer timed out")
		}

		if err := e.advance(m, log); err != nil {
			log.Error().Err(err).Msg("dispatch aborted")
		}
		if m.State().Terminal() {
			return
		}
	}
}

// advance offers the request to the closest untried driver that is free and
// connected. It stops after one successful delivery, or terminates the match
// when nobody is left.
func (e *Engine) advance(m *Match, log zerolog.Logger) error {
	for {
		if e.ctx.Err() != nil {
			e.finish(m, StateCancelled, "", log)
			return nil
		}
		c, ok := m.next()
		if !ok {
			e.finish(m, StateExhausted, "", log)
			return nil
		}
		m.markAttempted(c.DriverID)
		dlog := log.With().Str("driver_id", string(c.DriverID)).Logger()

		st, ok := e.statuses.Status(c.DriverID)
		if !ok || !st.Available() {
			e.metrics.skip()
			dlog.Debug().Msg("driver busy or without status; skipped")
			continue
		}
		ch, ok := e.channels.Lookup(c.DriverID)
		if !ok {
			e.metrics.skip()
			dlog.Debug().Msg("driver not connected; skipped")
			continue
		}

		snapshot := m.req
		tag, err := e.advisor.Advise(st.Position, snapshot.trip())
		if err != nil {
			e.finish(m, StateFailed, "", log)
			return fmt.Errorf("score offer for %s: %w", c.DriverID, err)
		}
		snapshot.Advice = tag

		if err := e.deliver(ch, c.DriverID, snapshot); err != nil {
			e.metrics.deliveryFailure()
			dlog.Warn().Err(err).Msg("offer delivery failed; treated as deny")
			continue
		}
		m.await(c.DriverID, e.cfg.ResponseTimeout)
		e.metrics.offer()
		dlog.Info().Str("advice", string(tag)).Float64("distance_km", c.DistanceKm).Msg("offer sent")
		return nil
	}
}

func (e *Engine) deliver(ch registry.Channel, driverID types.ID, req Request) error {
	ctx, cancel := context.WithTimeout(e.ctx, e.sendTimeout)
	defer cancel()
	if err := ch.Send(ctx, protocol.NewOffer(driverID, req.offer())); err != nil {
		if errors.Is(err, context.Canceled) && e.ctx.Err() != nil {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (e *Engine) finish(m *Match, s State, winner types.ID, log zerolog.Logger) {
	if !m.terminate(s, winner) {
		return
	}
	e.pending.Remove(m)
	e.metrics.setPending(e.pending.Len())
	e.metrics.outcome(s)

	ev := log.Info()
	if s == StateFailed {
		ev = log.Error()
	}
	ev.Str("state", string(s)).Str("driver_id", string(winner)).
		Int("attempted", len(m.Attempted())).Msg("match finished")
	m.release()
}

func (e *Engine) matchLogger(m *Match) zerolog.Logger {
	return e.log.With().Str("request_id", string(m.ID())).Str("customer_id", string(m.req.CustomerID)).Logger()
}

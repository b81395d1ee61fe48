// README: Prometheus collectors for the dispatch engine.
package matching

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	offers           prometheus.Counter
	skipped          prometheus.Counter
	deliveryFailures prometheus.Counter
	timeouts         prometheus.Counter
	nearMisses       prometheus.Counter
	outcomes         *prometheus.CounterVec
	pending          prometheus.Gauge
}

// NewMetrics registers the dispatch collectors on reg, or the default
// registerer when reg is nil. Collectors already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		offers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridematch_offers_total",
			Help: "Ride offers delivered to drivers",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridematch_candidates_skipped_total",
			Help: "Candidates skipped because they were busy or offline",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridematch_delivery_failures_total",
			Help: "Offers that could not be written to the driver channel",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridematch_offer_timeouts_total",
			Help: "Offers that expired without an answer",
		}),
		nearMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridematch_near_misses_total",
			Help: "Answers that arrived for an attempt no longer outstanding",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridematch_match_outcomes_total",
			Help: "Matches by terminal state",
		}, []string{"state"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridematch_pending_matches",
			Help: "Matches currently in flight",
		}),
	}

	var err error
	if m.offers, err = register(reg, m.offers); err != nil {
		return nil, err
	}
	if m.skipped, err = register(reg, m.skipped); err != nil {
		return nil, err
	}
	if m.deliveryFailures, err = register(reg, m.deliveryFailures); err != nil {
		return nil, err
	}
	if m.timeouts, err = register(reg, m.timeouts); err != nil {
		return nil, err
	}
	if m.nearMisses, err = register(reg, m.nearMisses); err != nil {
		return nil, err
	}
	if m.outcomes, err = register(reg, m.outcomes); err != nil {
		return nil, err
	}
	if m.pending, err = register(reg, m.pending); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// nil-safe recorders so the engine runs without metrics in tests.

func (m *Metrics) offer() {
	if m != nil {
		m.offers.Inc()
	}
}

func (m *Metrics) skip() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) deliveryFailure() {
	if m != nil {
		m.deliveryFailures.Inc()
	}
}

func (m *Metrics) timeout() {
	if m != nil {
		m.timeouts.Inc()
	}
}

func (m *Metrics) nearMiss() {
	if m != nil {
		m.nearMisses.Inc()
	}
}

func (m *Metrics) outcome(s State) {
	if m != nil {
		m.outcomes.WithLabelValues(string(s)).Inc()
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.pending.Set(float64(n))
	}
}

// README: Driver simulation harness; websocket drivers answer offers while requests are posted over HTTP.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ridematch/internal/types"
)

type Config struct {
	// ServerURL is the HTTP base URL; the websocket endpoint is derived from it.
	ServerURL string
	Drivers   int
	Center    types.Point
	SpreadKm  float64
	// AcceptProbability is the chance a driver accepts an offer.
	AcceptProbability float64
	UpdateInterval    time.Duration
	// TripScale is the wall time simulated per trip minute.
	TripScale time.Duration

	Requests        int
	RequestInterval time.Duration
	// RequestsFile optionally holds a JSON array of requests to replay.
	RequestsFile string

	// Duration bounds the whole run; zero runs until the context ends.
	Duration time.Duration
	Seed     uint64
}

func DefaultConfig() Config {
	return Config{
		ServerURL:         "http://localhost:3000",
		Drivers:           10,
		Center:            types.Point{Lat: 10.7769, Lng: 106.7009},
		SpreadKm:          5,
		AcceptProbability: 0.7,
		UpdateInterval:    10 * time.Second,
		TripScale:         time.Second,
		Requests:          10,
		RequestInterval:   5 * time.Second,
	}
}

// Stats counts what happened during a run.
type Stats struct {
	Registered    int64 `json:"registered"`
	Offers        int64 `json:"offers"`
	Accepted      int64 `json:"accepted"`
	Denied        int64 `json:"denied"`
	Completed     int64 `json:"completed"`
	RequestsSent  int64 `json:"requests_sent"`
	RequestErrors int64 `json:"request_errors"`
}

type counters struct {
	registered, offers, accepted, denied, completed, sent, requestErrors atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Registered:    c.registered.Load(),
		Offers:        c.offers.Load(),
		Accepted:      c.accepted.Load(),
		Denied:        c.denied.Load(),
		Completed:     c.completed.Load(),
		RequestsSent:  c.sent.Load(),
		RequestErrors: c.requestErrors.Load(),
	}
}

type Simulator struct {
	cfg    Config
	log    zerolog.Logger
	client *http.Client
	stats  counters

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg Config, log zerolog.Logger) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return &Simulator{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 10 * time.Second},
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Run connects the drivers, sends the requests and keeps the drivers active
// until the run duration elapses or ctx ends.
func (s *Simulator) Run(ctx context.Context) (Stats, error) {
	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}
	requests, err := s.requests()
	if err != nil {
		return Stats{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	ready := make(chan struct{}, s.cfg.Drivers)
	for i := 1; i <= s.cfg.Drivers; i++ {
		d := s.newDriver(types.ID(fmt.Sprintf("D_%d", 200000+i)))
		g.Go(func() error {
			return d.run(gctx, ready)
		})
	}
	g.Go(func() error {
		for i := 0; i < s.cfg.Drivers; i++ {
			select {
			case <-ready:
			case <-gctx.Done():
				return nil
			}
		}
		s.waitForStatuses(gctx, s.cfg.Drivers)
		s.log.Info().Int("drivers", s.cfg.Drivers).Msg("all drivers registered")
		return s.sendRequests(gctx, requests)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return s.stats.snapshot(), err
}

// Request is the customer request body posted to the server.
type Request struct {
	CustomerID   string   `json:"customer_id"`
	FromLocation Location `json:"from_location"`
	ToLocation   Location `json:"to_location"`
	Price        float64  `json:"price"`
	DurationMins float64  `json:"duration_mins"`
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

func (s *Simulator) requests() ([]Request, error) {
	if s.cfg.RequestsFile != "" {
		data, err := os.ReadFile(s.cfg.RequestsFile)
		if err != nil {
			return nil, fmt.Errorf("read requests file: %w", err)
		}
		var out []Request
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode requests file: %w", err)
		}
		return out, nil
	}
	out := make([]Request, s.cfg.Requests)
	for i := range out {
		from, to := s.randomPoint(), s.randomPoint()
		out[i] = Request{
			CustomerID:   fmt.Sprintf("C_%d", 100000+i+1),
			FromLocation: Location{Lat: from.Lat, Lon: from.Lng},
			ToLocation:   Location{Lat: to.Lat, Lon: to.Lng},
			Price:        math.Round(s.uniform(5, 50)*100) / 100,
			DurationMins: math.Round(s.uniform(5, 40)),
		}
	}
	return out, nil
}

func (s *Simulator) sendRequests(ctx context.Context, requests []Request) error {
	for i, r := range requests {
		if err := s.post(ctx, r); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.stats.requestErrors.Add(1)
			s.log.Warn().Err(err).Str("customer_id", r.CustomerID).Msg("request failed")
		} else {
			s.stats.sent.Add(1)
			s.log.Info().Int("n", i+1).Int("of", len(requests)).Str("customer_id", r.CustomerID).
				Float64("price", r.Price).Msg("request sent")
		}
		if i == len(requests)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.RequestInterval):
		}
	}
	return nil
}

func (s *Simulator) post(ctx context.Context, r Request) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ServerURL+"/api/customer_request", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// waitForStatuses polls the server until it reports at least n driver
// statuses, giving up quietly after a few seconds.
func (s *Simulator) waitForStatuses(ctx context.Context, n int) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if got, err := s.statusCount(ctx); err == nil && got >= n {
			return
		}
		select {
		case <-ctx.Done():
			s.log.Warn().Int("want", n).Msg("server did not report every driver status")
			return
		case <-ticker.C:
		}
	}
}

func (s *Simulator) statusCount(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ServerURL+"/api/drivers/status", nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Float64()*(hi-lo)
}

// randomPoint picks a point uniformly within SpreadKm of the center.
func (s *Simulator) randomPoint() types.Point {
	s.mu.Lock()
	r := s.cfg.SpreadKm * math.Sqrt(s.rng.Float64())
	theta := 2 * math.Pi * s.rng.Float64()
	s.mu.Unlock()
	const kmPerDeg = 111.32
	dLat := r * math.Cos(theta) / kmPerDeg
	dLng := r * math.Sin(theta) / (kmPerDeg * math.Cos(s.cfg.Center.Lat*math.Pi/180))
	return types.Point{Lat: s.cfg.Center.Lat + dLat, Lng: s.cfg.Center.Lng + dLng}
}

func (s *Simulator) chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *Simulator) wsURL() string {
	u := s.cfg.ServerURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

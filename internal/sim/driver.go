// README: One simulated driver connection.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"ridematch/internal/protocol"
	"ridematch/internal/types"
)

type driver struct {
	id  types.ID
	sim *Simulator
	log zerolog.Logger

	mu       sync.Mutex
	position types.Point
	restTime int
	busy     bool
}

func (s *Simulator) newDriver(id types.ID) *driver {
	return &driver{
		id:       id,
		sim:      s,
		log:      s.log.With().Str("driver_id", string(id)).Logger(),
		position: s.randomPoint(),
		restTime: int(s.uniform(60, 360)),
	}
}

type statusFrame struct {
	Type      string       `json:"type"`
	DriverID  types.ID     `json:"driverId"`
	Location  *types.Point `json:"location,omitempty"`
	RestTime  *int         `json:"restTime,omitempty"`
	RequestID types.ID     `json:"requestId,omitempty"`
	Response  string       `json:"response,omitempty"`
}

func (d *driver) frame(typ string) statusFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	pos, rest := d.position, d.restTime
	return statusFrame{Type: typ, DriverID: d.id, Location: &pos, RestTime: &rest}
}

func (d *driver) run(ctx context.Context, ready chan<- struct{}) error {
	conn, _, err := websocket.Dial(ctx, d.sim.wsURL(), nil)
	if err != nil {
		return fmt.Errorf("driver %s dial: %w", d.id, err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, d.frame(protocol.TypeRegister)); err != nil {
		return fmt.Errorf("driver %s register: %w", d.id, err)
	}
	d.sim.stats.registered.Add(1)
	d.log.Info().Msg("registered")
	ready <- struct{}{}

	go d.heartbeat(ctx, conn)

	for {
		var offer protocol.Offer
		if err := wsjson.Read(ctx, conn, &offer); err != nil {
			if ctx.Err() != nil {
				d.leave(conn)
				return nil
			}
			return fmt.Errorf("driver %s read: %w", d.id, err)
		}
		if offer.Type != protocol.TypeRideRequest {
			continue
		}
		d.answer(ctx, conn, offer.Request)
	}
}

func (d *driver) answer(ctx context.Context, conn *websocket.Conn, req protocol.OfferRequest) {
	d.sim.stats.offers.Add(1)
	d.mu.Lock()
	busy := d.busy
	d.mu.Unlock()

	accept := !busy && d.sim.chance(d.sim.cfg.AcceptProbability)
	decision := protocol.Deny
	if accept {
		decision = protocol.Accept
		d.mu.Lock()
		d.busy = true
		d.restTime = -1
		d.mu.Unlock()
	}

	f := d.frame(protocol.TypeResponse)
	f.RequestID = req.RequestID
	f.Response = string(decision)
	if err := wsjson.Write(ctx, conn, f); err != nil {
		d.log.Warn().Err(err).Msg("response write failed")
		return
	}
	d.log.Info().Str("request_id", string(req.RequestID)).Str("advice", req.Advice).
		Str("decision", string(decision)).Msg("offer answered")

	if !accept {
		d.sim.stats.denied.Add(1)
		return
	}
	d.sim.stats.accepted.Add(1)
	trip := time.Duration(req.DurationMins * float64(d.sim.cfg.TripScale))
	time.AfterFunc(trip, func() {
		d.mu.Lock()
		d.position = req.ToLocation.Point
		d.restTime = 0
		d.busy = false
		d.mu.Unlock()
		if err := wsjson.Write(ctx, conn, d.frame(protocol.TypeUpdate)); err != nil {
			return
		}
		d.sim.stats.completed.Add(1)
		d.log.Info().Msg("trip completed")
	})
}

// heartbeat reports status periodically while idle; rest time grows with it.
func (d *driver) heartbeat(ctx context.Context, conn *websocket.Conn) {
	if d.sim.cfg.UpdateInterval <= 0 {
		return
	}
	ticker := time.NewTicker(d.sim.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.mu.Lock()
		if d.busy {
			d.mu.Unlock()
			continue
		}
		d.restTime += int(d.sim.cfg.UpdateInterval / time.Second)
		d.mu.Unlock()
		if err := wsjson.Write(ctx, conn, d.frame(protocol.TypeUpdate)); err != nil {
			return
		}
	}
}

func (d *driver) leave(conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = wsjson.Write(ctx, conn, statusFrame{Type: protocol.TypeDeregister, DriverID: d.id})
	conn.Close(websocket.StatusNormalClosure, "simulation finished")
}

// README: Driver channel handler; decodes frames and routes them to registry, status store and engine.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"ridematch/internal/modules/location"
	"ridematch/internal/modules/matching"
	"ridematch/internal/modules/registry"
	"ridematch/internal/protocol"
	"ridematch/internal/types"
)

var ErrNoDriver = errors.New("frame has no driver id and session is not registered")

type Registry interface {
	Register(id types.ID, ch registry.Channel)
	DeregisterIf(id types.ID, ch registry.Channel) bool
}

type StatusWriter interface {
	SetStatus(ctx context.Context, u location.Update) error
	Offline(ctx context.Context, id types.ID)
}

type Dispatcher interface {
	Respond(requestID, driverID types.ID, d protocol.Decision) error
	AgentGone(driverID types.ID)
}

// Session is the per-socket state. It is only touched by the socket's reader.
type Session struct {
	ch       registry.Channel
	driverID types.ID
}

func NewSession(ch registry.Channel) *Session {
	return &Session{ch: ch}
}

func (s *Session) DriverID() types.ID { return s.driverID }

type Handler struct {
	registry Registry
	statuses StatusWriter
	dispatch Dispatcher
	log      zerolog.Logger
}

func NewHandler(reg Registry, statuses StatusWriter, dispatch Dispatcher, log zerolog.Logger) *Handler {
	return &Handler{registry: reg, statuses: statuses, dispatch: dispatch, log: log}
}

// ServeHTTP upgrades the request and reads frames until the socket closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "session ended")

	sess := NewSession(NewConn(ws))
	defer h.Disconnect(sess)
	h.log.Info().Str("remote", r.RemoteAddr).Msg("driver connected")

	ctx := r.Context()
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("driver_id", string(sess.driverID)).Msg("websocket read ended")
			return
		}
		if typ != websocket.MessageText {
			h.log.Warn().Str("driver_id", string(sess.driverID)).Msg("binary frame dropped")
			continue
		}
		if err := h.Handle(ctx, sess, data); err != nil {
			h.log.Warn().Err(err).Str("driver_id", string(sess.driverID)).Msg("frame dropped")
		}
	}
}

// Handle applies one inbound frame. A returned error means the frame (or its
// status part) was dropped; the connection stays usable either way.
func (h *Handler) Handle(ctx context.Context, s *Session, data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case protocol.Register:
		if s.driverID != "" && s.driverID != m.DriverID {
			h.release(ctx, s.driverID, s.ch)
		}
		s.driverID = m.DriverID
		h.registry.Register(m.DriverID, s.ch)
		h.log.Info().Str("driver_id", string(m.DriverID)).Msg("driver registered")
		return h.applyStatus(ctx, m.DriverID, m.Status)

	case protocol.Deregister:
		if h.release(ctx, m.DriverID, s.ch) {
			h.log.Info().Str("driver_id", string(m.DriverID)).Msg("driver deregistered")
		}
		if s.driverID == m.DriverID {
			s.driverID = ""
		}
		return nil

	case protocol.StatusUpdate:
		id := s.driverID
		if id == "" {
			id = m.DriverID
		}
		if id == "" {
			return fmt.Errorf("update: %w", ErrNoDriver)
		}
		return h.applyStatus(ctx, id, m.Status)

	case protocol.Response:
		id := s.driverID
		if id == "" {
			id = m.DriverID
		}
		if id == "" {
			return fmt.Errorf("response: %w", ErrNoDriver)
		}
		if err := h.dispatch.Respond(m.RequestID, id, m.Decision); err != nil {
			// the match may already be settled; nothing to route to
			h.log.Debug().Err(err).Str("driver_id", string(id)).Str("request_id", string(m.RequestID)).Msg("response not routed")
		} else {
			h.log.Info().Str("driver_id", string(id)).Str("request_id", string(m.RequestID)).
				Str("decision", string(m.Decision)).Msg("driver responded")
		}
		return h.applyStatus(ctx, id, m.Status)
	}
	return fmt.Errorf("%w: %T", protocol.ErrUnknownType, msg)
}

// Disconnect cleans up after a closed socket. The registry entry is removed
// only if it still points at this socket.
func (h *Handler) Disconnect(s *Session) {
	if s.driverID == "" {
		h.log.Info().Msg("client disconnected")
		return
	}
	// the socket's own context is already done here
	h.release(context.Background(), s.driverID, s.ch)
	h.log.Info().Str("driver_id", string(s.driverID)).Msg("driver disconnected")
}

// release drops id's connection if ch still owns it, withdraws the driver from
// the GEO index and tells the engine.
func (h *Handler) release(ctx context.Context, id types.ID, ch registry.Channel) bool {
	if !h.registry.DeregisterIf(id, ch) {
		return false
	}
	h.statuses.Offline(ctx, id)
	h.dispatch.AgentGone(id)
	return true
}

func (h *Handler) applyStatus(ctx context.Context, id types.ID, st protocol.Status) error {
	err := h.statuses.SetStatus(ctx, location.Update{DriverID: id, Position: st.Location, RestTime: st.RestTime})
	if err != nil {
		return fmt.Errorf("status for %s: %w", id, err)
	}
	return nil
}

var _ Dispatcher = (*matching.Engine)(nil)

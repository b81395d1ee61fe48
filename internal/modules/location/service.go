// README: Location service applies driver status updates and answers availability queries.
package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ridematch/internal/types"
)

const geoWriteTimeout = 2 * time.Second

// Presence reports whether a driver currently holds a live connection.
type Presence interface {
	Connected(id types.ID) bool
}

type Service struct {
	store    *Store
	presence Presence
	geo      GeoIndex
	log      zerolog.Logger
	now      func() time.Time
}

// NewService wires the status store. geo may be nil, in which case Nearby is
// answered from memory.
func NewService(store *Store, presence Presence, geo GeoIndex, log zerolog.Logger) *Service {
	return &Service{store: store, presence: presence, geo: geo, log: log, now: time.Now}
}

// SetStatus records u when it carries both a position and a rest time;
// otherwise nothing is written and ErrIncompleteStatus is returned.
func (s *Service) SetStatus(ctx context.Context, u Update) error {
	if u.DriverID == "" || u.Position == nil || u.RestTime == nil {
		return ErrIncompleteStatus
	}
	st := AgentStatus{
		DriverID:  u.DriverID,
		Position:  *u.Position,
		RestTime:  *u.RestTime,
		UpdatedAt: s.now(),
	}
	s.store.Set(st)
	s.mirror(ctx, st)
	return nil
}

func (s *Service) Status(id types.ID) (AgentStatus, bool) {
	return s.store.Get(id)
}

// ListAvailable returns drivers that have a status, a live connection and a
// non-negative rest time.
func (s *Service) ListAvailable() []AgentStatus {
	return s.store.List(func(st AgentStatus) bool {
		return st.Available() && s.presence.Connected(st.DriverID)
	})
}

// All returns every known status regardless of availability.
func (s *Service) All() []AgentStatus {
	return s.store.List(nil)
}

// Offline withdraws a driver from the GEO index once its connection is gone.
// The last reported status is kept for monitoring; a later status write puts
// the driver back in the index.
func (s *Service) Offline(ctx context.Context, id types.ID) {
	if s.geo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, geoWriteTimeout)
	defer cancel()
	if err := s.geo.Remove(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("driver_id", string(id)).Msg("geo index remove failed")
	}
}

// NearbyDriver is an available driver within a search radius.
type NearbyDriver struct {
	DriverID   types.ID    `json:"driver_id"`
	Position   types.Point `json:"location"`
	DistanceKm float64     `json:"distance_km"`
}

// Nearby lists available drivers within radiusKm of p, closest first.
func (s *Service) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]NearbyDriver, error) {
	if s.geo == nil {
		return s.nearbyFromMemory(p, radiusKm), nil
	}
	ids, err := s.geo.Search(ctx, p, radiusKm)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyDriver, 0, len(ids))
	for _, id := range ids {
		st, ok := s.store.Get(id)
		if !ok || !st.Available() || !s.presence.Connected(id) {
			continue
		}
		out = append(out, NearbyDriver{DriverID: id, Position: st.Position, DistanceKm: DistanceKm(p, st.Position)})
	}
	return out, nil
}

func (s *Service) nearbyFromMemory(p types.Point, radiusKm float64) []NearbyDriver {
	var out []NearbyDriver
	for _, st := range s.ListAvailable() {
		d := DistanceKm(p, st.Position)
		if d <= radiusKm {
			out = append(out, NearbyDriver{DriverID: st.DriverID, Position: st.Position, DistanceKm: d})
		}
	}
	sortNearest(out)
	return out
}

// mirror keeps the GEO index in step with availability. Failures only log.
func (s *Service) mirror(ctx context.Context, st AgentStatus) {
	if s.geo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, geoWriteTimeout)
	defer cancel()
	var err error
	if st.Available() {
		err = s.geo.Add(ctx, st.DriverID, st.Position)
	} else {
		err = s.geo.Remove(ctx, st.DriverID)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("driver_id", string(st.DriverID)).Msg("geo index update failed")
	}
}

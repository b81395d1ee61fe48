// README: Driver status snapshot: last known position and rest/cooldown counter.
package location

import (
	"errors"
	"time"

	"ridematch/internal/types"
)

// BusyRestTime is the rest value a driver reports while on a trip.
const BusyRestTime = -1

var ErrIncompleteStatus = errors.New("status update requires both location and rest time")

type AgentStatus struct {
	DriverID  types.ID    `json:"driver_id"`
	Position  types.Point `json:"location"`
	RestTime  int         `json:"restTime"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Available reports whether the driver is idle and may receive offers.
func (s AgentStatus) Available() bool {
	return s.RestTime >= 0
}

// Update is an inbound status message. Position and RestTime are pointers so a
// frame that omits either can be told apart from a zero value.
type Update struct {
	DriverID types.ID
	Position *types.Point
	RestTime *int
}

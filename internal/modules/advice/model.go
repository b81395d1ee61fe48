// README: Advice scoring model: coefficients, reference point and trip features.
package advice

import (
	"errors"

	"ridematch/internal/types"
)

// ErrConfig marks a missing or malformed scoring artifact. It is never
// replaced by a default score.
var ErrConfig = errors.New("scoring configuration unavailable")

type Advice string

const (
	Yes Advice = "yes"
	No  Advice = "no"
)

// DefaultThreshold is the score above which an offer is recommended.
const DefaultThreshold = 10.0

// Coefficients weight price, duration, pickup distance and the distance from
// the drop-off to the reference point, in that order.
type Coefficients [4]float64

// Trip carries the request fields the model reads.
type Trip struct {
	Price        float64
	DurationMins float64
	Origin       types.Point
	Destination  types.Point
}

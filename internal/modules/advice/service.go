// README: Advice service scores a driver/trip pair and turns it into a recommendation.
package advice

import (
	"gonum.org/v1/gonum/floats"

	"ridematch/internal/modules/location"
	"ridematch/internal/types"
)

type Service struct {
	source    Source
	threshold float64
}

func NewService(source Source, threshold float64) *Service {
	return &Service{source: source, threshold: threshold}
}

// Advise reads the current model and reference point and recommends the trip
// to a driver at pos. Configuration errors are returned as is.
func (s *Service) Advise(pos types.Point, trip Trip) (Advice, error) {
	c, err := s.source.Coefficients()
	if err != nil {
		return "", err
	}
	ref, err := s.source.ReferencePoint()
	if err != nil {
		return "", err
	}
	return Decide(Score(c, pos, trip, ref), s.threshold), nil
}

// Score is c·f − c·c where f holds price, duration, the driver's distance to
// the pickup and the drop-off's distance to ref.
func Score(c Coefficients, pos types.Point, trip Trip, ref types.Point) float64 {
	f := []float64{
		trip.Price,
		trip.DurationMins,
		location.DistanceKm(pos, trip.Origin),
		location.DistanceKm(trip.Destination, ref),
	}
	w := c[:]
	return floats.Dot(w, f) - floats.Dot(w, w)
}

func Decide(score, threshold float64) Advice {
	if score > threshold {
		return Yes
	}
	return No
}

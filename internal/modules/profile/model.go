// README: Driver and customer profile records plus the submitted-request log entry.
package profile

import (
	"errors"
	"time"

	"ridematch/internal/types"
)

var ErrNotFound = errors.New("profile not found")

type Driver struct {
	DriverID types.ID `json:"driver_id"`
	Name     string   `json:"driver_name"`
	Rating   float64  `json:"driver_rating"`
	Gender   string   `json:"driver_gender"`
}

type Customer struct {
	CustomerID types.ID `json:"customer_id"`
	Name       string   `json:"customer_name"`
	Rating     float64  `json:"customer_rating"`
}

// RequestRecord is one accepted customer request as submitted, after the
// driver share was applied to the price.
type RequestRecord struct {
	RequestID    types.ID    `json:"request_id"`
	CustomerID   types.ID    `json:"customer_id"`
	From         types.Place `json:"from_location"`
	To           types.Place `json:"to_location"`
	DurationMins float64     `json:"duration_mins"`
	Price        float64     `json:"price"`
	ReceivedAt   time.Time   `json:"received_at"`
}

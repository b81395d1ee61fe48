// README: Driver channel wire frames (JSON over websocket).
package protocol

import (
	"ridematch/internal/types"
)

const (
	TypeRegister    = "register"
	TypeDeregister  = "deregister"
	TypeUpdate      = "update"
	TypeResponse    = "response"
	TypeRideRequest = "ride_request"
)

type Decision string

const (
	Accept Decision = "accept"
	Deny   Decision = "deny"
)

func (d Decision) Valid() bool {
	return d == Accept || d == Deny
}

// inbound is the union of every field a driver may send.
type inbound struct {
	Type       string       `json:"type"`
	DriverID   types.ID     `json:"driverId"`
	Location   *types.Point `json:"location"`
	RestTime   *int         `json:"restTime"`
	RequestID  types.ID     `json:"requestId"`
	CustomerID types.ID     `json:"customerId"`
	Response   Decision     `json:"response"`
}

// Message is one decoded inbound frame: Register, Deregister, StatusUpdate or
// Response.
type Message interface {
	frameType() string
}

// Status carries the optional position/rest pair shared by several frames.
type Status struct {
	Location *types.Point
	RestTime *int
}

// Complete reports whether both halves of the status are present.
func (s Status) Complete() bool {
	return s.Location != nil && s.RestTime != nil
}

type Register struct {
	DriverID types.ID
	Status
}

type Deregister struct {
	DriverID types.ID
}

// StatusUpdate may omit DriverID; the session's registered driver applies.
type StatusUpdate struct {
	DriverID types.ID
	Status
}

type Response struct {
	DriverID  types.ID
	RequestID types.ID
	Decision  Decision
	Status
}

func (Register) frameType() string     { return TypeRegister }
func (Deregister) frameType() string   { return TypeDeregister }
func (StatusUpdate) frameType() string { return TypeUpdate }
func (Response) frameType() string     { return TypeResponse }

// OfferRequest is the request snapshot carried by a ride offer.
type OfferRequest struct {
	RequestID    types.ID    `json:"request_id"`
	CustomerID   types.ID    `json:"customer_id"`
	FromLocation types.Place `json:"from_location"`
	ToLocation   types.Place `json:"to_location"`
	DurationMins float64     `json:"duration_mins"`
	Price        float64     `json:"price"`
	Advice       string      `json:"advice,omitempty"`
}

// Offer is the outbound ride_request directive.
type Offer struct {
	Type     string       `json:"type"`
	DriverID types.ID     `json:"driverId"`
	Request  OfferRequest `json:"request"`
}

func NewOffer(driverID types.ID, req OfferRequest) Offer {
	return Offer{Type: TypeRideRequest, DriverID: driverID, Request: req}
}

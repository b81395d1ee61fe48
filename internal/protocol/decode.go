// README: Inbound frame decoding and validation.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownType = errors.New("unknown frame type")
)

// Decode parses one inbound frame. Errors wrap ErrMalformed or ErrUnknownType.
func Decode(data []byte) (Message, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	st := Status{Location: in.Location, RestTime: in.RestTime}
	switch in.Type {
	case TypeRegister:
		if in.DriverID == "" {
			return nil, fmt.Errorf("%w: register without driverId", ErrMalformed)
		}
		return Register{DriverID: in.DriverID, Status: st}, nil
	case TypeDeregister:
		if in.DriverID == "" {
			return nil, fmt.Errorf("%w: deregister without driverId", ErrMalformed)
		}
		return Deregister{DriverID: in.DriverID}, nil
	case TypeUpdate:
		return StatusUpdate{DriverID: in.DriverID, Status: st}, nil
	case TypeResponse:
		if !in.Response.Valid() {
			return nil, fmt.Errorf("%w: response must be accept or deny, got %q", ErrMalformed, in.Response)
		}
		reqID := in.RequestID
		if reqID == "" {
			reqID = in.CustomerID
		}
		if reqID == "" {
			return nil, fmt.Errorf("%w: response without requestId", ErrMalformed)
		}
		return Response{DriverID: in.DriverID, RequestID: reqID, Decision: in.Response, Status: st}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
}

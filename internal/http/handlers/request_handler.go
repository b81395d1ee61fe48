// README: Customer request handlers; submit for dispatch and inspect pending matches.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ridematch/internal/modules/matching"
	"ridematch/internal/modules/profile"
	"ridematch/internal/types"
)

type Dispatcher interface {
	Submit(ctx context.Context, req matching.Request) (*matching.Match, error)
	Get(id types.ID) (*matching.Match, bool)
	List() []matching.Snapshot
}

// Estimator fills in a trip duration the caller left out.
type Estimator interface {
	EstimateMinutes(ctx context.Context, from, to types.Point) (float64, error)
}

// Geocoder fills in a missing address.
type Geocoder interface {
	Address(ctx context.Context, p types.Point) (string, error)
}

type RequestLog interface {
	RecordRequest(r profile.RequestRecord)
}

type RequestHandlerDeps struct {
	Dispatch    Dispatcher
	Log         RequestLog
	Estimator   Estimator // optional
	Geocoder    Geocoder  // optional
	DriverShare float64
	Logger      zerolog.Logger
}

type RequestHandler struct {
	deps RequestHandlerDeps
	now  func() time.Time
}

func NewRequestHandler(deps RequestHandlerDeps) *RequestHandler {
	return &RequestHandler{deps: deps, now: time.Now}
}

type placeReq struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
}

func (p placeReq) place() types.Place {
	return types.Place{Point: types.Point{Lat: p.Lat, Lng: p.Lon}, Address: p.Address}
}

type customerRequestReq struct {
	RequestID    string    `json:"request_id"`
	CustomerID   string    `json:"customer_id"`
	FromLocation *placeReq `json:"from_location"`
	ToLocation   *placeReq `json:"to_location"`
	DurationMins float64   `json:"duration_mins"`
	Price        float64   `json:"price"`
}

// Create accepts a customer request, scales the price to the driver's share
// and hands it to the dispatch engine.
func (h *RequestHandler) Create(c *gin.Context) {
	var body customerRequestReq
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if body.CustomerID == "" || body.FromLocation == nil || body.ToLocation == nil {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}

	ctx := c.Request.Context()
	req := matching.Request{
		ID:           types.ID(body.RequestID),
		CustomerID:   types.ID(body.CustomerID),
		From:         body.FromLocation.place(),
		To:           body.ToLocation.place(),
		DurationMins: body.DurationMins,
		Price:        body.Price * h.deps.DriverShare,
	}
	if err := req.Validate(); err != nil {
		writeMatchError(c, err)
		return
	}
	h.enrich(ctx, &req)

	match, err := h.deps.Dispatch.Submit(ctx, req)
	if err != nil {
		writeMatchError(c, err)
		return
	}
	req.ID = match.ID()
	h.deps.Log.RecordRequest(profile.RequestRecord{
		RequestID:    req.ID,
		CustomerID:   req.CustomerID,
		From:         req.From,
		To:           req.To,
		DurationMins: req.DurationMins,
		Price:        req.Price,
		ReceivedAt:   h.now(),
	})

	msg := "Request sent to closest driver"
	if match.State() == matching.StateExhausted {
		msg = "No available drivers"
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"success": true,
		"data":    req,
		"state":   match.State(),
		"driver":  match.Agent(),
		"message": msg,
	})
}

// enrich fills optional fields from the maps services. Failures leave the
// request as it was.
func (h *RequestHandler) enrich(ctx context.Context, req *matching.Request) {
	if req.DurationMins == 0 && h.deps.Estimator != nil {
		mins, err := h.deps.Estimator.EstimateMinutes(ctx, req.From.Point, req.To.Point)
		if err != nil {
			h.deps.Logger.Warn().Err(err).Str("customer_id", string(req.CustomerID)).Msg("duration estimate failed")
		} else {
			req.DurationMins = mins
		}
	}
	if h.deps.Geocoder == nil {
		return
	}
	for _, p := range []*types.Place{&req.From, &req.To} {
		if p.Address != "" {
			continue
		}
		addr, err := h.deps.Geocoder.Address(ctx, p.Point)
		if err != nil {
			h.deps.Logger.Warn().Err(err).Msg("reverse geocode failed")
			continue
		}
		p.Address = addr
	}
}

// Get reports a pending match. Settled requests are no longer tracked.
func (h *RequestHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing request id")
		return
	}
	m, ok := h.deps.Dispatch.Get(types.ID(id))
	if !ok {
		writeMatchError(c, matching.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, m.Snapshot())
}

func (h *RequestHandler) List(c *gin.Context) {
	pending := h.deps.Dispatch.List()
	writeList(c, len(pending), pending)
}

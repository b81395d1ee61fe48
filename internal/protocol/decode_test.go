package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridematch/internal/types"
)

func TestDecode_Register(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"register","driverId":"D_1","location":{"lat":10,"lon":11},"restTime":120}`))
	require.NoError(t, err)
	reg, ok := msg.(Register)
	require.True(t, ok)
	assert.Equal(t, types.ID("D_1"), reg.DriverID)
	require.True(t, reg.Complete())
	assert.Equal(t, types.Point{Lat: 10, Lng: 11}, *reg.Location)
	assert.Equal(t, 120, *reg.RestTime)
}

func TestDecode_RegisterWithoutStatusIsIncomplete(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"register","driverId":"D_1","location":{"lat":10,"lon":11}}`))
	require.NoError(t, err)
	assert.False(t, msg.(Register).Complete())
}

func TestDecode_ZeroRestTimeIsPresent(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"update","location":{"lat":0,"lon":0},"restTime":0}`))
	require.NoError(t, err)
	up := msg.(StatusUpdate)
	assert.True(t, up.Complete())
	assert.Equal(t, types.ID(""), up.DriverID)
}

func TestDecode_Response(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"response","driverId":"D_1","requestId":"r1","response":"deny","restTime":-1,"location":{"lat":1,"lon":2}}`))
	require.NoError(t, err)
	resp := msg.(Response)
	assert.Equal(t, types.ID("r1"), resp.RequestID)
	assert.Equal(t, Deny, resp.Decision)
	assert.True(t, resp.Complete())
}

func TestDecode_ResponseFallsBackToCustomerID(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"response","driverId":"D_1","customerId":"C_9","response":"accept"}`))
	require.NoError(t, err)
	assert.Equal(t, types.ID("C_9"), msg.(Response).RequestID)
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{{{`, ErrMalformed},
		{"missing type", `{"driverId":"D_1"}`, ErrMalformed},
		{"unknown type", `{"type":"teleport","driverId":"D_1"}`, ErrUnknownType},
		{"register without id", `{"type":"register"}`, ErrMalformed},
		{"deregister without id", `{"type":"deregister"}`, ErrMalformed},
		{"bad decision", `{"type":"response","requestId":"r1","response":"maybe"}`, ErrMalformed},
		{"response without request", `{"type":"response","response":"accept"}`, ErrMalformed},
		{"wrong field type", `{"type":"update","restTime":"soon"}`, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOffer_WireShape(t *testing.T) {
	offer := NewOffer("D_1", OfferRequest{
		RequestID:    "r1",
		CustomerID:   "C_1",
		FromLocation: types.Place{Point: types.Point{Lat: 10, Lng: 10}, Address: "A"},
		ToLocation:   types.Place{Point: types.Point{Lat: 10.5, Lng: 10.5}},
		DurationMins: 15,
		Price:        16,
		Advice:       "yes",
	})
	data, err := json.Marshal(offer)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ride_request", got["type"])
	assert.Equal(t, "D_1", got["driverId"])
	req := got["request"].(map[string]any)
	assert.Equal(t, "r1", req["request_id"])
	assert.Equal(t, "yes", req["advice"])
	from := req["from_location"].(map[string]any)
	assert.Equal(t, 10.0, from["lat"])
	assert.Equal(t, 10.0, from["lon"])
	assert.Equal(t, "A", from["address"])
}

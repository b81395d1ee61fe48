package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridematch/internal/config"
	"ridematch/internal/protocol"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	density := filepath.Join(dir, "density_data.json")
	require.NoError(t, os.WriteFile(model, []byte(`[1, 0.5, -0.2, -0.1]`), 0o644))
	require.NoError(t, os.WriteFile(density, []byte(`{"density_points": [10.4, 10.4]}`), 0o644))

	cfg := config.Default()
	cfg.Log.Level = "disabled"
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Storage.Dir = filepath.Join(dir, "storage")
	cfg.Advice.ModelFile = model
	cfg.Advice.DensityFile = density
	cfg.Matching.ResponseTimeout = 5 * time.Second
	return cfg
}

func TestApp_EndToEndDispatch(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type":     "register",
		"driverId": "D_1",
		"location": map[string]float64{"lat": 10.01, "lon": 10},
		"restTime": 30,
	}))
	require.Eventually(t, func() bool { return len(a.Statuses.ListAvailable()) == 1 }, 2*time.Second, 10*time.Millisecond)

	body, _ := json.Marshal(map[string]any{
		"request_id":    "r1",
		"customer_id":   "C_1",
		"from_location": map[string]any{"lat": 10.0, "lon": 10.0, "address": "A"},
		"to_location":   map[string]any{"lat": 10.5, "lon": 10.5, "address": "B"},
		"price":         25.0,
		"duration_mins": 15.0,
	})
	resp, err := http.Post(srv.URL+"/api/customer_request", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var offer protocol.Offer
	require.NoError(t, wsjson.Read(ctx, conn, &offer))
	assert.Equal(t, protocol.TypeRideRequest, offer.Type)
	assert.Equal(t, 20.0, offer.Request.Price)
	assert.Equal(t, "yes", offer.Request.Advice)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type":      "response",
		"requestId": "r1",
		"response":  "accept",
		"location":  map[string]float64{"lat": 10.01, "lon": 10},
		"restTime":  -1,
	}))
	require.Eventually(t, func() bool { return a.Engine.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(a.Statuses.ListAvailable()) == 0 }, 2*time.Second, 10*time.Millisecond)

	res, err := http.Get(srv.URL + "/api/requests/r1")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	assert.Len(t, a.Profiles.Requests(), 1)
	require.NoError(t, a.Close())
	_, err = os.Stat(filepath.Join(cfg.Storage.Dir, "drivers.json"))
	assert.NoError(t, err)
}

func TestApp_RunStopsWithContext(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_BadRedisFailsFast(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := New(ctx, cfg, nil)
	assert.Error(t, err)
}

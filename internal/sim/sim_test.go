package sim

import (
	"context"
	"encoding/json"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridematch/internal/app"
	"ridematch/internal/config"
	"ridematch/internal/modules/location"
)

func startServer(t *testing.T) (*app.App, string) {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	density := filepath.Join(dir, "density_data.json")
	require.NoError(t, os.WriteFile(model, []byte(`[1, 0.5, -0.2, -0.1]`), 0o644))
	require.NoError(t, os.WriteFile(density, []byte(`{"density_points": [10.78, 106.70]}`), 0o644))

	cfg := config.Default()
	cfg.Log.Level = "disabled"
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Storage.Dir = filepath.Join(dir, "storage")
	cfg.Advice.ModelFile = model
	cfg.Advice.DensityFile = density
	cfg.Matching.ResponseTimeout = 2 * time.Second

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return a, srv.URL
}

func testSimConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.ServerURL = url
	cfg.Drivers = 3
	cfg.AcceptProbability = 1
	cfg.UpdateInterval = 50 * time.Millisecond
	cfg.TripScale = time.Millisecond
	cfg.Requests = 2
	cfg.RequestInterval = 20 * time.Millisecond
	cfg.Duration = 2 * time.Second
	cfg.Seed = 42
	return cfg
}

func TestSimulator_DriversAcceptEveryOffer(t *testing.T) {
	_, url := startServer(t)

	stats, err := New(testSimConfig(url), zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Registered)
	assert.Equal(t, int64(2), stats.RequestsSent)
	assert.Zero(t, stats.RequestErrors)
	assert.Equal(t, int64(2), stats.Offers)
	assert.Equal(t, int64(2), stats.Accepted)
	assert.Zero(t, stats.Denied)
	assert.Equal(t, int64(2), stats.Completed)
}

func TestSimulator_DenyingDriversExhaustRequests(t *testing.T) {
	a, url := startServer(t)
	cfg := testSimConfig(url)
	cfg.AcceptProbability = 0
	cfg.Requests = 1

	stats, err := New(cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	// every driver is offered the single request once before it gives up
	assert.Equal(t, int64(3), stats.Offers)
	assert.Equal(t, int64(3), stats.Denied)
	assert.Zero(t, stats.Accepted)
	assert.Zero(t, a.Engine.Pending())
}

func TestSimulator_ReplaysRequestsFile(t *testing.T) {
	_, url := startServer(t)
	reqs := []Request{{
		CustomerID:   "C_900001",
		FromLocation: Location{Lat: 10.77, Lon: 106.70, Address: "Ben Thanh"},
		ToLocation:   Location{Lat: 10.80, Lon: 106.66, Address: "Tan Son Nhat"},
		Price:        30,
		DurationMins: 20,
	}}
	data, err := json.Marshal(reqs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "requests.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg := testSimConfig(url)
	cfg.RequestsFile = path
	stats, err := New(cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RequestsSent)
	assert.Equal(t, int64(1), stats.Accepted)
}

func TestSimulator_UnreachableServer(t *testing.T) {
	cfg := testSimConfig("http://127.0.0.1:1")
	_, err := New(cfg, zerolog.Nop()).Run(context.Background())
	assert.Error(t, err)
}

func TestRandomPoint_StaysWithinSpread(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	s := New(cfg, zerolog.Nop())
	for i := 0; i < 200; i++ {
		p := s.randomPoint()
		d := location.DistanceKm(cfg.Center, p)
		assert.LessOrEqual(t, d, cfg.SpreadKm*1.01)
		assert.False(t, math.IsNaN(p.Lat) || math.IsNaN(p.Lng))
	}
}

func TestWSURL(t *testing.T) {
	for in, want := range map[string]string{
		"http://localhost:3000/": "ws://localhost:3000/ws",
		"https://example.com":    "wss://example.com/ws",
	} {
		s := New(Config{ServerURL: in}, zerolog.Nop())
		assert.Equal(t, want, s.wsURL())
	}
}

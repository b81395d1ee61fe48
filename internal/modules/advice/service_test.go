package advice

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridematch/internal/modules/location"
	"ridematch/internal/types"
)

func writeArtifacts(t *testing.T, model, density string) *FileStore {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	densityPath := filepath.Join(dir, "density_data.json")
	if model != "" {
		require.NoError(t, os.WriteFile(modelPath, []byte(model), 0o644))
	}
	if density != "" {
		require.NoError(t, os.WriteFile(densityPath, []byte(density), 0o644))
	}
	return NewFileStore(modelPath, densityPath)
}

var sampleTrip = Trip{
	Price:        20,
	DurationMins: 15,
	Origin:       types.Point{Lat: 10.0, Lng: 10.0},
	Destination:  types.Point{Lat: 10.5, Lng: 10.5},
}

func TestScore_MatchesFormula(t *testing.T) {
	c := Coefficients{1, 0.5, -0.2, -0.1}
	pos := types.Point{Lat: 10.01, Lng: 10.0}
	ref := types.Point{Lat: 10.4, Lng: 10.4}

	d1 := location.DistanceKm(pos, sampleTrip.Origin)
	d2 := location.DistanceKm(sampleTrip.Destination, ref)
	want := 1*20 + 0.5*15 - 0.2*d1 - 0.1*d2 - (1 + 0.25 + 0.04 + 0.01)

	got := Score(c, pos, sampleTrip, ref)
	assert.InDelta(t, want, got, 1e-9)
}

func TestDecide_StrictlyAboveThreshold(t *testing.T) {
	assert.Equal(t, No, Decide(10, DefaultThreshold))
	assert.Equal(t, Yes, Decide(10.0001, DefaultThreshold))
	assert.Equal(t, No, Decide(-3, DefaultThreshold))
}

func TestAdvise_ReadsArtifacts(t *testing.T) {
	src := writeArtifacts(t, `[1, 0.5, -0.2, -0.1]`, `{"density_points": [10.4, 10.4]}`)
	svc := NewService(src, DefaultThreshold)

	got, err := svc.Advise(types.Point{Lat: 10.01, Lng: 10}, sampleTrip)
	require.NoError(t, err)
	assert.Equal(t, Yes, got)

	// A cheap trip under the same model is not recommended.
	cheap := sampleTrip
	cheap.Price = 1
	cheap.DurationMins = 1
	got, err = svc.Advise(types.Point{Lat: 10.01, Lng: 10}, cheap)
	require.NoError(t, err)
	assert.Equal(t, No, got)
}

func TestAdvise_RereadsModelEachCall(t *testing.T) {
	src := writeArtifacts(t, `[1, 0, 0, 0]`, `{"density_points": [0, 0]}`)
	svc := NewService(src, DefaultThreshold)

	got, err := svc.Advise(sampleTrip.Origin, sampleTrip)
	require.NoError(t, err)
	assert.Equal(t, Yes, got) // 20 - 1

	require.NoError(t, os.WriteFile(src.modelPath, []byte(`[0, 0, 0, 0]`), 0o644))
	got, err = svc.Advise(sampleTrip.Origin, sampleTrip)
	require.NoError(t, err)
	assert.Equal(t, No, got)
}

func TestAdvise_ConfigErrorsAreNotDefaulted(t *testing.T) {
	cases := []struct {
		name    string
		model   string
		density string
	}{
		{"missing model", "", `{"density_points": [0, 0]}`},
		{"missing density", `[1, 2, 3, 4]`, ""},
		{"malformed model", `{"x": 1}`, `{"density_points": [0, 0]}`},
		{"short model", `[1, 2, 3]`, `{"density_points": [0, 0]}`},
		{"long model", `[1, 2, 3, 4, 5]`, `{"density_points": [0, 0]}`},
		{"malformed density", `[1, 2, 3, 4]`, `not json`},
		{"density without point", `[1, 2, 3, 4]`, `{"density_points": [1]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(writeArtifacts(t, tc.model, tc.density), DefaultThreshold)
			got, err := svc.Advise(sampleTrip.Origin, sampleTrip)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig), "want ErrConfig, got %v", err)
			assert.Empty(t, got)
		})
	}
}

func TestAdvise_ConcurrentCallsAgreeWithSequential(t *testing.T) {
	src := writeArtifacts(t, `[0.8, 0.3, -0.5, -0.05]`, `{"density_points": [10.3, 10.2]}`)
	svc := NewService(src, DefaultThreshold)

	positions := make([]types.Point, 32)
	for i := range positions {
		positions[i] = types.Point{Lat: 10 + float64(i)*0.01, Lng: 10 - float64(i)*0.01}
	}
	want := make([]Advice, len(positions))
	for i, p := range positions {
		a, err := svc.Advise(p, sampleTrip)
		require.NoError(t, err)
		want[i] = a
	}

	got := make([]Advice, len(positions))
	var wg sync.WaitGroup
	for i, p := range positions {
		wg.Add(1)
		go func(i int, p types.Point) {
			defer wg.Done()
			a, err := svc.Advise(p, sampleTrip)
			if err == nil {
				got[i] = a
			}
		}(i, p)
	}
	wg.Wait()
	assert.Equal(t, want, got)
}

func TestScore_Deterministic(t *testing.T) {
	c := Coefficients{0.3, 0.2, 0.1, 0.05}
	ref := types.Point{Lat: 10.2, Lng: 10.2}
	first := Score(c, types.Point{Lat: 10, Lng: 10.01}, sampleTrip, ref)
	for i := 0; i < 100; i++ {
		if got := Score(c, types.Point{Lat: 10, Lng: 10.01}, sampleTrip, ref); got != first || math.IsNaN(got) {
			t.Fatalf("score changed between calls: %v vs %v", got, first)
		}
	}
}

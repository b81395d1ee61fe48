// README: Scoring artifacts loaded from JSON files on every read.
package advice

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"ridematch/internal/types"
)

// Source supplies the model coefficients and the density reference point.
type Source interface {
	Coefficients() (Coefficients, error)
	ReferencePoint() (types.Point, error)
}

// FileStore reads both artifacts from disk each call so edits apply without a
// restart. The model file holds a JSON array of four numbers; the density file
// holds {"density_points": [lat, lon]}.
type FileStore struct {
	modelPath   string
	densityPath string
}

func NewFileStore(modelPath, densityPath string) *FileStore {
	return &FileStore{modelPath: modelPath, densityPath: densityPath}
}

func (s *FileStore) Coefficients() (Coefficients, error) {
	var raw []float64
	if err := readJSON(s.modelPath, &raw); err != nil {
		return Coefficients{}, err
	}
	if len(raw) != len(Coefficients{}) {
		return Coefficients{}, fmt.Errorf("%w: %s holds %d coefficients, want 4", ErrConfig, s.modelPath, len(raw))
	}
	var c Coefficients
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Coefficients{}, fmt.Errorf("%w: %s coefficient %d is not finite", ErrConfig, s.modelPath, i)
		}
		c[i] = v
	}
	return c, nil
}

func (s *FileStore) ReferencePoint() (types.Point, error) {
	var doc struct {
		DensityPoints []float64 `json:"density_points"`
	}
	if err := readJSON(s.densityPath, &doc); err != nil {
		return types.Point{}, err
	}
	if len(doc.DensityPoints) != 2 {
		return types.Point{}, fmt.Errorf("%w: %s density_points must be [lat, lon]", ErrConfig, s.densityPath)
	}
	return types.Point{Lat: doc.DensityPoints[0], Lng: doc.DensityPoints[1]}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}
	return nil
}

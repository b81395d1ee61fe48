// README: Flat JSON file backend for profiles (drivers.json, customers.json keyed by id).
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ridematch/internal/types"
)

const (
	driversFile   = "drivers.json"
	customersFile = "customers.json"
)

type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) LoadDrivers(_ context.Context) ([]Driver, error) {
	byID := map[types.ID]Driver{}
	if err := s.read(driversFile, &byID); err != nil {
		return nil, err
	}
	out := make([]Driver, 0, len(byID))
	for id, d := range byID {
		if d.DriverID == "" {
			d.DriverID = id
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

func (s *FileStore) LoadCustomers(_ context.Context) ([]Customer, error) {
	byID := map[types.ID]Customer{}
	if err := s.read(customersFile, &byID); err != nil {
		return nil, err
	}
	out := make([]Customer, 0, len(byID))
	for id, c := range byID {
		if c.CustomerID == "" {
			c.CustomerID = id
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func (s *FileStore) SaveDrivers(_ context.Context, drivers []Driver) error {
	byID := make(map[types.ID]Driver, len(drivers))
	for _, d := range drivers {
		byID[d.DriverID] = d
	}
	return s.write(driversFile, byID)
}

func (s *FileStore) SaveCustomers(_ context.Context, customers []Customer) error {
	byID := make(map[types.ID]Customer, len(customers))
	for _, c := range customers {
		byID[c.CustomerID] = c
	}
	return s.write(customersFile, byID)
}

// read leaves v untouched when the file does not exist yet.
func (s *FileStore) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *FileStore) write(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

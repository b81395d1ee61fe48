// README: Profile service keeps drivers, customers and the request log in memory over a pluggable backend.
package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ridematch/internal/types"
)

// Backend persists profile records between runs.
type Backend interface {
	LoadDrivers(ctx context.Context) ([]Driver, error)
	LoadCustomers(ctx context.Context) ([]Customer, error)
	SaveDrivers(ctx context.Context, drivers []Driver) error
	SaveCustomers(ctx context.Context, customers []Customer) error
}

type Service struct {
	backend Backend

	mu        sync.RWMutex
	drivers   map[types.ID]Driver
	customers map[types.ID]Customer
	requests  []RequestRecord
}

func NewService(backend Backend) *Service {
	return &Service{
		backend:   backend,
		drivers:   make(map[types.ID]Driver),
		customers: make(map[types.ID]Customer),
	}
}

// LoadAll replaces the in-memory profiles with the backend's contents.
func (s *Service) LoadAll(ctx context.Context) error {
	drivers, err := s.backend.LoadDrivers(ctx)
	if err != nil {
		return fmt.Errorf("load drivers: %w", err)
	}
	customers, err := s.backend.LoadCustomers(ctx)
	if err != nil {
		return fmt.Errorf("load customers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers = make(map[types.ID]Driver, len(drivers))
	for _, d := range drivers {
		s.drivers[d.DriverID] = d
	}
	s.customers = make(map[types.ID]Customer, len(customers))
	for _, c := range customers {
		s.customers[c.CustomerID] = c
	}
	return nil
}

func (s *Service) SaveAll(ctx context.Context) error {
	if err := s.backend.SaveDrivers(ctx, s.Drivers()); err != nil {
		return fmt.Errorf("save drivers: %w", err)
	}
	if err := s.backend.SaveCustomers(ctx, s.Customers()); err != nil {
		return fmt.Errorf("save customers: %w", err)
	}
	return nil
}

// Drivers returns every driver sorted by id.
func (s *Service) Drivers() []Driver {
	s.mu.RLock()
	out := make([]Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

func (s *Service) Customers() []Customer {
	s.mu.RLock()
	out := make([]Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

func (s *Service) Driver(id types.ID) (Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return Driver{}, ErrNotFound
	}
	return d, nil
}

func (s *Service) Customer(id types.ID) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) UpsertDriver(d Driver) {
	s.mu.Lock()
	s.drivers[d.DriverID] = d
	s.mu.Unlock()
}

func (s *Service) UpsertCustomer(c Customer) {
	s.mu.Lock()
	s.customers[c.CustomerID] = c
	s.mu.Unlock()
}

// RecordRequest appends to the in-memory request log. The log is not persisted.
func (s *Service) RecordRequest(r RequestRecord) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()
}

func (s *Service) Requests() []RequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RequestRecord, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Service) ClearRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

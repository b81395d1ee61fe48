package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridematch/internal/types"
)

func TestFileStore_MissingFilesLoadEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nothing-here"))
	drivers, err := store.LoadDrivers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drivers)
	customers, err := store.LoadCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestFileStore_ReadsKeyedObjects(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, driversFile), []byte(`{
  "D_2": {"driver_id": "D_2", "driver_name": "Bea", "driver_rating": 4.9, "driver_gender": "F"},
  "D_1": {"driver_name": "Ali", "driver_rating": 4.5, "driver_gender": "M"}
}`), 0o644))

	drivers, err := NewFileStore(dir).LoadDrivers(context.Background())
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	assert.Equal(t, Driver{DriverID: "D_1", Name: "Ali", Rating: 4.5, Gender: "M"}, drivers[0])
	assert.Equal(t, types.ID("D_2"), drivers[1].DriverID)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, customersFile), []byte(`[`), 0o644))
	_, err := NewFileStore(dir).LoadCustomers(context.Background())
	assert.Error(t, err)
}

func TestService_SaveThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "storage")
	svc := NewService(NewFileStore(dir))
	svc.UpsertDriver(Driver{DriverID: "D_1", Name: "Ali", Rating: 4.5, Gender: "M"})
	svc.UpsertCustomer(Customer{CustomerID: "C_1", Name: "Cy", Rating: 4.8})
	require.NoError(t, svc.SaveAll(context.Background()))

	raw, err := os.ReadFile(filepath.Join(dir, driversFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"D_1": {`)

	reloaded := NewService(NewFileStore(dir))
	require.NoError(t, reloaded.LoadAll(context.Background()))
	assert.Equal(t, svc.Drivers(), reloaded.Drivers())
	assert.Equal(t, svc.Customers(), reloaded.Customers())

	c, err := reloaded.Customer("C_1")
	require.NoError(t, err)
	assert.Equal(t, "Cy", c.Name)
	_, err = reloaded.Driver("D_404")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingBackend struct{ *FileStore }

func (failingBackend) LoadCustomers(context.Context) ([]Customer, error) {
	return nil, errors.New("disk on fire")
}

func TestService_LoadAllKeepsStateOnError(t *testing.T) {
	svc := NewService(failingBackend{NewFileStore(t.TempDir())})
	svc.UpsertDriver(Driver{DriverID: "D_1"})
	err := svc.LoadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load customers")
	assert.Len(t, svc.Drivers(), 1)
}

func TestService_RequestLog(t *testing.T) {
	svc := NewService(NewFileStore(t.TempDir()))
	svc.RecordRequest(RequestRecord{RequestID: "r1", CustomerID: "C_1", Price: 8, ReceivedAt: time.Now()})
	svc.RecordRequest(RequestRecord{RequestID: "r2", CustomerID: "C_2", Price: 4, ReceivedAt: time.Now()})

	got := svc.Requests()
	require.Len(t, got, 2)
	assert.Equal(t, types.ID("r1"), got[0].RequestID)

	got[0].Price = 1000
	assert.Equal(t, 8.0, svc.Requests()[0].Price)

	svc.ClearRequests()
	assert.Empty(t, svc.Requests())
}

// Postgres round trip; runs only when RIDEMATCH_TEST_DSN points at a database.
func TestPgStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("RIDEMATCH_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDEMATCH_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPgStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM drivers WHERE driver_id LIKE 'test_%'`)
	require.NoError(t, err)

	require.NoError(t, store.SaveDrivers(ctx, []Driver{{DriverID: "test_1", Name: "Ali", Rating: 4.5, Gender: "M"}}))
	require.NoError(t, store.SaveDrivers(ctx, []Driver{{DriverID: "test_1", Name: "Ali B", Rating: 4.6, Gender: "M"}}))

	drivers, err := store.LoadDrivers(ctx)
	require.NoError(t, err)
	var found *Driver
	for i := range drivers {
		if drivers[i].DriverID == "test_1" {
			found = &drivers[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Ali B", found.Name)
	assert.Equal(t, 4.6, found.Rating)
}

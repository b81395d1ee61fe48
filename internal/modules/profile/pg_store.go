// README: Profile store backed by PostgreSQL.
package profile

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS drivers (
    driver_id     TEXT PRIMARY KEY,
    driver_name   TEXT NOT NULL DEFAULT '',
    driver_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    driver_gender TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS customers (
    customer_id     TEXT PRIMARY KEY,
    customer_name   TEXT NOT NULL DEFAULT '',
    customer_rating DOUBLE PRECISION NOT NULL DEFAULT 0
);`

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// EnsureSchema creates the profile tables when missing.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *PgStore) LoadDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `
		SELECT driver_id, driver_name, driver_rating, driver_gender
		FROM drivers
		ORDER BY driver_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.DriverID, &d.Name, &d.Rating, &d.Gender); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgStore) LoadCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT customer_id, customer_name, customer_rating
		FROM customers
		ORDER BY customer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Rating); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PgStore) SaveDrivers(ctx context.Context, drivers []Driver) error {
	batch := &pgx.Batch{}
	for _, d := range drivers {
		batch.Queue(`
			INSERT INTO drivers (driver_id, driver_name, driver_rating, driver_gender)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (driver_id) DO UPDATE SET
				driver_name = EXCLUDED.driver_name,
				driver_rating = EXCLUDED.driver_rating,
				driver_gender = EXCLUDED.driver_gender`,
			string(d.DriverID), d.Name, d.Rating, d.Gender)
	}
	return s.sendBatch(ctx, batch, "drivers")
}

func (s *PgStore) SaveCustomers(ctx context.Context, customers []Customer) error {
	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(`
			INSERT INTO customers (customer_id, customer_name, customer_rating)
			VALUES ($1, $2, $3)
			ON CONFLICT (customer_id) DO UPDATE SET
				customer_name = EXCLUDED.customer_name,
				customer_rating = EXCLUDED.customer_rating`,
			string(c.CustomerID), c.Name, c.Rating)
	}
	return s.sendBatch(ctx, batch, "customers")
}

func (s *PgStore) sendBatch(ctx context.Context, batch *pgx.Batch, table string) error {
	if batch.Len() == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return tx.Commit(ctx)
}

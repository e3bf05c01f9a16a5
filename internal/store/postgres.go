package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/envsense/sensor-data-ingestion/internal/sensor"
)

const (
	maxPoolConns = 10
	minPoolConns = 2
)

// PostgresStore is the durable sensor.Store implementation backed by a pgx
// connection pool. Each operation borrows a pooled connection for the
// duration of the call; pgxpool returns it on every exit path, including
// timeouts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, verifies connectivity and
// installs the schema (readings table plus change-notification trigger).
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = maxPoolConns
	cfg.MinConns = minPoolConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	for _, ddl := range AllDDL() {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// AppendBatch copies the batch into sensor_readings inside one transaction:
// either every row lands or, on any failure, the rollback leaves the table
// untouched. Every row carries the shared takenAt timestamp.
func (s *PostgresStore) AppendBatch(ctx context.Context, readings []sensor.Reading, takenAt time.Time) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(readings))
	for i, r := range readings {
		rows[i] = []any{r.SensorID, r.Temperature, r.Wind, r.Humidity, r.CO2, takenAt}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"sensor_readings"},
		[]string{"sensor_id", "temperature", "wind_speed", "humidity", "co2", "reading_time_utc"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy readings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return int(copied), nil
}

// ScanReadings streams every stored row through fn, one at a time, without
// materializing the full result set.
func (s *PostgresStore) ScanReadings(ctx context.Context, fn func(sensor.StoredReading) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT sensor_id, temperature, wind_speed, humidity, co2, reading_time_utc
		FROM sensor_readings
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("select readings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r sensor.StoredReading
		if err := rows.Scan(&r.SensorID, &r.Temperature, &r.Wind, &r.Humidity, &r.CO2, &r.ReadingTime); err != nil {
			return fmt.Errorf("scan reading: %w", err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

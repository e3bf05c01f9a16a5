package store

import (
	"context"
	"sync"
	"time"

	"github.com/envsense/sensor-data-ingestion/internal/sensor"
)

// MemoryStore is a concurrency-safe in-memory implementation of the sensor
// store. It backs unit tests and honors the same contract as the PostgreSQL
// store: atomic batch appends, no deduplication, restartable scans.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []sensor.StoredReading
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendBatch appends every reading with the shared takenAt timestamp. The
// whole batch lands under one lock acquisition, so concurrent scans see
// either all of it or none of it.
func (s *MemoryStore) AppendBatch(ctx context.Context, readings []sensor.Reading, takenAt time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range readings {
		s.rows = append(s.rows, sensor.StoredReading{Reading: r, ReadingTime: takenAt})
	}
	return len(readings), nil
}

// ScanReadings streams every stored reading to fn in insertion order. It
// iterates over a snapshot taken under the read lock, so appends running
// concurrently do not disturb an in-progress scan.
func (s *MemoryStore) ScanReadings(ctx context.Context, fn func(sensor.StoredReading) error) error {
	s.mu.RLock()
	snapshot := make([]sensor.StoredReading, len(s.rows))
	copy(snapshot, s.rows)
	s.mu.RUnlock()

	for _, r := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

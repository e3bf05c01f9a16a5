package sensor

import (
	"context"
	"time"
)

// Store is the contract the PostgreSQL store (and the in-memory test store)
// must satisfy.
type Store interface {
	// AppendBatch persists every reading of the batch with the shared takenAt
	// timestamp, atomically: either all rows are written or none. It returns
	// the number of rows written. Appends are never deduplicated; re-appending
	// identical readings creates new rows.
	AppendBatch(ctx context.Context, readings []Reading, takenAt time.Time) (int, error)

	// ScanReadings streams every stored reading to fn, one at a time. Each
	// call is an independent scan over the rows present at that moment. If fn
	// returns an error the scan stops and that error is returned. Callers must
	// not rely on row order.
	ScanReadings(ctx context.Context, fn func(StoredReading) error) error
}

package sensor

import "errors"

// ErrInvalidCount is returned when a non-positive reading count is requested.
var ErrInvalidCount = errors.New("reading count must be greater than zero")

// IngestionError wraps a failure to persist a generated batch. When an
// IngestionError is returned the store is unchanged: batches are never
// partially written.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string { return "ingest readings: " + e.Err.Error() }

func (e *IngestionError) Unwrap() error { return e.Err }

// QueryError wraps a failure to read or aggregate stored readings.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query readings: " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

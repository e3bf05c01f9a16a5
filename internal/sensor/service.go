package sensor

import (
	"context"
	"time"
)

const (
	defaultBatchSize = 20
	defaultOpTimeout = 10 * time.Second
)

// IngestResult describes one completed ingestion batch. Its JSON form is the
// /generate response body.
type IngestResult struct {
	Inserted  int       `json:"inserted"`
	Timestamp time.Time `json:"timestamp"` // always UTC, shared by every row
	Readings  []Reading `json:"readings"`
}

// Service is the ingestion-and-aggregation core shared by every trigger
// adapter. Each adapter renders the returned values into its own output (HTTP
// response, log line); the core holds no state between invocations beyond its
// collaborators.
type Service struct {
	store     Store
	gen       *Generator
	batchSize int
	opTimeout time.Duration
}

// NewService creates a Service. batchSize is the default readings-per-batch
// (one per sensor); opTimeout bounds each store operation. Non-positive
// values fall back to 20 and 10s.
func NewService(store Store, gen *Generator, batchSize int, opTimeout time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Service{
		store:     store,
		gen:       gen,
		batchSize: batchSize,
		opTimeout: opTimeout,
	}
}

// Ingest generates a batch of readings, stamps it with a single UTC timestamp
// and appends it to the store atomically. count selects the batch size; zero
// selects the configured default, negative counts are rejected by the
// generator. On store failure nothing is persisted and the cause is wrapped
// in an *IngestionError.
func (s *Service) Ingest(ctx context.Context, count int) (*IngestResult, error) {
	if count == 0 {
		count = s.batchSize
	}

	readings, err := s.gen.Generate(count)
	if err != nil {
		return nil, err
	}

	takenAt := time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	inserted, err := s.store.AppendBatch(ctx, readings, takenAt)
	if err != nil {
		return nil, &IngestionError{Err: err}
	}

	return &IngestResult{
		Inserted:  inserted,
		Timestamp: takenAt,
		Readings:  readings,
	}, nil
}

// Stats recomputes per-sensor statistics over the full store contents. On
// failure the cause is wrapped in a *QueryError.
func (s *Service) Stats(ctx context.Context) ([]Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	stats, err := ComputeStats(ctx, s.store)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return stats, nil
}

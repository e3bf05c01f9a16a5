package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"github.com/envsense/sensor-data-ingestion/internal/sensor"
)

var (
	timerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timer_ingest_runs_total",
		Help: "Timer ticks that attempted an ingestion.",
	})
	timerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timer_ingest_failures_total",
		Help: "Timer ingestions that failed.",
	})
	timerSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timer_ingest_skips_total",
		Help: "Timer ticks skipped while the store circuit was open.",
	})
)

// Scheduler periodically ingests a batch of readings.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *sensor.Service
	interval  time.Duration
	circuit   *gobreaker.CircuitBreaker
}

// New creates a new Scheduler. The circuit breaker makes ticks fail fast
// while the store is down instead of stacking store timeouts tick after
// tick.
func New(interval time.Duration, service *sensor.Service) *Scheduler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "timer-ingest",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
	})

	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		circuit:   cb,
	}
}

// Start schedules the periodic ingestion job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 10
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(s.runIngest)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// runIngest performs one timer-triggered ingestion. A failed run is logged
// and never stops the schedule.
func (s *Scheduler) runIngest() {
	timerRuns.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := s.circuit.Execute(func() (interface{}, error) {
		return s.service.Ingest(ctx, 0)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			timerSkips.Inc()
			log.Printf("scheduler: skipping ingestion, store circuit open")
			return
		}
		timerFailures.Inc()
		log.Printf("scheduler: ingestion failed: %v", err)
		return
	}

	ingested, ok := result.(*sensor.IngestResult)
	if !ok {
		log.Printf("scheduler: unexpected result type from circuit breaker")
		return
	}
	log.Printf("scheduler: ingested %d readings at %s", ingested.Inserted, ingested.Timestamp.Format(time.RFC3339))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

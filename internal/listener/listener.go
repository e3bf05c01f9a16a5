package listener

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/envsense/sensor-data-ingestion/internal/sensor"
)

var (
	notificationsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "change_notifications_total",
		Help: "Store change notifications received.",
	})
	recomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "change_recompute_failures_total",
		Help: "Statistics recomputations that failed after a change notification.",
	})
)

// Backoff controls reconnect delay growth for the listening connection.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Listener holds a dedicated database connection subscribed to the store's
// change channel and recomputes full statistics whenever a notification
// arrives. The notification payload is an opaque wake-up signal; a failed
// recompute is logged and not retried, the next notification starts fresh.
type Listener struct {
	url     string
	channel string
	service *sensor.Service
	backoff Backoff
	done    chan struct{}
}

// New creates a Listener for the given connection URL and notify channel.
func New(url, channel string, service *sensor.Service) *Listener {
	return &Listener{
		url:     url,
		channel: channel,
		service: service,
		backoff: Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second},
		done:    make(chan struct{}),
	}
}

// Start launches the listening loop in the background. The loop runs until
// ctx is cancelled.
func (l *Listener) Start(ctx context.Context) {
	go l.run(ctx)
}

// Done is closed once the listening loop has fully stopped.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// run owns the connection: it dials, subscribes, delivers notifications and
// reconnects with exponential backoff when the connection breaks.
func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	delay := l.backoff.Initial
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := pgx.Connect(ctx, l.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("listener: connect failed: %v (retrying in %s)", err, delay)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextDelay(delay, l.backoff.Max)
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
			conn.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
			log.Printf("listener: subscribe failed: %v (retrying in %s)", err, delay)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextDelay(delay, l.backoff.Max)
			continue
		}

		log.Printf("listener: listening on channel %q", l.channel)
		delay = l.backoff.Initial

		l.listen(ctx, conn)
		conn.Close(context.Background())
	}
}

// listen blocks delivering notifications until the connection breaks or ctx
// is cancelled.
func (l *Listener) listen(ctx context.Context, conn *pgx.Conn) {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("listener: connection lost: %v", err)
			}
			return
		}

		notificationsReceived.Inc()
		l.handleChange(ctx, n.Payload)
	}
}

// handleChange recomputes full statistics through the same query path the
// HTTP adapter uses and logs the result. The payload carries no meaning
// beyond being logged.
func (l *Listener) handleChange(ctx context.Context, payload string) {
	stats, err := l.service.Stats(ctx)
	if err != nil {
		recomputeFailures.Inc()
		log.Printf("listener: stats recompute failed: %v", err)
		return
	}

	encoded, err := json.Marshal(stats)
	if err != nil {
		log.Printf("listener: encode stats: %v", err)
		return
	}
	log.Printf("listener: statistics recomputed (%s): %s", payload, encoded)
}

// sleepCtx sleeps for d unless ctx ends first; it reports whether the full
// sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	return next
}

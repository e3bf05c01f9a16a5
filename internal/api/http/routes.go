package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/envsense/sensor-data-ingestion/internal/sensor"
)

var validate = validator.New()

var (
	ingestRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_ingest_requests_total",
		Help: "Requests received on /generate.",
	})
	ingestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_ingest_failures_total",
		Help: "Requests to /generate that failed to persist a batch.",
	})
	statsRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_stats_requests_total",
		Help: "Requests received on /stats.",
	})
	statsFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_stats_failures_total",
		Help: "Requests to /stats that failed to compute statistics.",
	})
)

// RegisterRoutes wires the HTTP trigger handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *sensor.Service) {
	app.Get("/generate", func(c *fiber.Ctx) error {
		ingestRequests.Inc()

		req, err := parseCountQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.Ingest(c.UserContext(), req.Count)
		if err != nil {
			ingestFailures.Inc()
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(result)
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		statsRequests.Inc()

		stats, err := service.Stats(c.UserContext())
		if err != nil {
			statsFailures.Inc()
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(stats)
	})
}

// ErrorHandler renders handler errors as plain-text responses. Trigger
// endpoints answer failures with a plain-text body, never JSON framing.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).SendString(err.Error())
}

// countQuery holds the optional batch size override for /generate. Zero means
// the parameter was absent and the service default applies.
type countQuery struct {
	Count int `validate:"gte=1,lte=10000"`
}

func parseCountQuery(c *fiber.Ctx) (countQuery, error) {
	var q countQuery

	raw := c.Query("count")
	if raw == "" {
		return q, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return q, errors.New("count must be an integer")
	}
	q.Count = n

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

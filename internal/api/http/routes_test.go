package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/envsense/sensor-data-ingestion/internal/sensor"
	"github.com/envsense/sensor-data-ingestion/internal/store"
)

// toggleStore wraps the in-memory store with a switchable append failure so
// tests can simulate an unreachable database and its recovery.
type toggleStore struct {
	*store.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (s *toggleStore) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *toggleStore) AppendBatch(ctx context.Context, readings []sensor.Reading, takenAt time.Time) (int, error) {
	s.mu.Lock()
	failing := s.fail
	s.mu.Unlock()
	if failing {
		return 0, errors.New("store unreachable")
	}
	return s.MemoryStore.AppendBatch(ctx, readings, takenAt)
}

// scanFailStore fails every scan; appends are not used by the tests that
// need it.
type scanFailStore struct{}

func (scanFailStore) AppendBatch(ctx context.Context, readings []sensor.Reading, takenAt time.Time) (int, error) {
	return len(readings), nil
}

func (scanFailStore) ScanReadings(ctx context.Context, fn func(sensor.StoredReading) error) error {
	return errors.New("store unreachable")
}

func newTestApp(s sensor.Store) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	svc := sensor.NewService(s, sensor.NewGenerator(rand.NewSource(1)), 20, time.Second)
	RegisterRoutes(app, svc)
	return app
}

type generateResponse struct {
	Inserted  int              `json:"inserted"`
	Timestamp time.Time        `json:"timestamp"`
	Readings  []sensor.Reading `json:"readings"`
}

// TestGenerateReturnsBatch verifies the success shape of /generate: inserted
// count, ISO8601 timestamp and the echoed readings.
func TestGenerateReturnsBatch(t *testing.T) {
	app := newTestApp(&toggleStore{MemoryStore: store.NewMemoryStore()})

	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	var body generateResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Inserted != 20 {
		t.Errorf("expected inserted 20, got %d", body.Inserted)
	}
	if len(body.Readings) != 20 {
		t.Fatalf("expected 20 readings, got %d", len(body.Readings))
	}
	if body.Timestamp.IsZero() {
		t.Error("expected a parseable batch timestamp")
	}
	for i, r := range body.Readings {
		if r.SensorID != i+1 {
			t.Errorf("reading %d: expected sensor id %d, got %d", i, i+1, r.SensorID)
		}
	}

	// Wire field names of one reading.
	var asMap struct {
		Readings []map[string]any `json:"readings"`
	}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("decode raw response: %v", err)
	}
	for _, key := range []string{"sensor_id", "temperature", "wind", "humidity", "co2"} {
		if _, ok := asMap.Readings[0][key]; !ok {
			t.Errorf("reading missing field %q", key)
		}
	}
}

// TestGenerateCountParam verifies the optional count override.
func TestGenerateCountParam(t *testing.T) {
	app := newTestApp(&toggleStore{MemoryStore: store.NewMemoryStore()})

	req := httptest.NewRequest(http.MethodGet, "/generate?count=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Inserted != 5 || len(body.Readings) != 5 {
		t.Fatalf("expected 5 readings, got inserted=%d len=%d", body.Inserted, len(body.Readings))
	}
}

// TestGenerateCountValidation verifies that non-positive or malformed counts
// are rejected with 400.
func TestGenerateCountValidation(t *testing.T) {
	app := newTestApp(&toggleStore{MemoryStore: store.NewMemoryStore()})

	for _, raw := range []string{"0", "-4", "abc", "10001"} {
		req := httptest.NewRequest(http.MethodGet, "/generate?count="+raw, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("count=%s: unexpected error: %v", raw, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("count=%s: expected status %d, got %d", raw, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

// TestGenerateStoreUnreachable verifies the failure contract: plain-text 500,
// nothing persisted, and the process keeps serving afterwards.
func TestGenerateStoreUnreachable(t *testing.T) {
	ts := &toggleStore{MemoryStore: store.NewMemoryStore()}
	ts.setFail(true)
	app := newTestApp(ts)

	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected plain-text content type, got %q", ct)
	}
	msg, _ := io.ReadAll(resp.Body)
	if len(msg) == 0 {
		t.Error("expected a plain-text error body")
	}

	// Nothing may have been persisted by the failed batch.
	rows := 0
	if err := ts.ScanReadings(context.Background(), func(sensor.StoredReading) error { rows++; return nil }); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected no persisted rows after failure, got %d", rows)
	}

	// The store recovering must be enough for the next request to succeed.
	ts.setFail(false)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/generate", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d after recovery, got %d", http.StatusOK, resp.StatusCode)
	}
}

// TestStatsEmptyStore verifies that an empty store answers with a JSON empty
// array, not null.
func TestStatsEmptyStore(t *testing.T) {
	app := newTestApp(&toggleStore{MemoryStore: store.NewMemoryStore()})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", string(body))
	}
}

// TestStatsAggregatesStoredReadings verifies values, wire field names and
// ascending sensor order.
func TestStatsAggregatesStoredReadings(t *testing.T) {
	memStore := store.NewMemoryStore()
	ctx := context.Background()
	for _, v := range []float64{10, 12, 14} {
		batch := []sensor.Reading{
			{SensorID: 2, Temperature: v, Wind: v, Humidity: v, CO2: v},
			{SensorID: 1, Temperature: v + 1, Wind: v + 1, Humidity: v + 1, CO2: v + 1},
		}
		if _, err := memStore.AppendBatch(ctx, batch, time.Now().UTC()); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	app := newTestApp(&toggleStore{MemoryStore: memStore})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)

	var stats []sensor.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stats entries, got %d", len(stats))
	}
	if stats[0].SensorID != 1 || stats[1].SensorID != 2 {
		t.Fatalf("expected ascending sensor order, got %d then %d", stats[0].SensorID, stats[1].SensorID)
	}
	s2 := stats[1]
	if s2.TemperatureMin != 10 || s2.TemperatureMax != 14 || s2.TemperatureAvg != 12 {
		t.Errorf("sensor 2 temperature: expected 10/14/12, got %v/%v/%v", s2.TemperatureMin, s2.TemperatureMax, s2.TemperatureAvg)
	}

	// Wire field names for one element.
	var asMaps []map[string]any
	if err := json.Unmarshal(raw, &asMaps); err != nil {
		t.Fatalf("decode raw response: %v", err)
	}
	for _, key := range []string{
		"sensor_id",
		"temperature_min", "temperature_max", "temperature_avg",
		"wind_min", "wind_max", "wind_avg",
		"humidity_min", "humidity_max", "humidity_avg",
		"co2_min", "co2_max", "co2_avg",
	} {
		if _, ok := asMaps[0][key]; !ok {
			t.Errorf("response missing field %q", key)
		}
	}
}

// TestStatsStoreUnreachable verifies the plain-text 500 on query failure.
func TestStatsStoreUnreachable(t *testing.T) {
	app := newTestApp(scanFailStore{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected plain-text content type, got %q", ct)
	}
}

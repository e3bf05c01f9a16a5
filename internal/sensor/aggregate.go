package sensor

import (
	"context"
	"sort"
)

// metricAccum folds one measured quantity of one sensor.
type metricAccum struct {
	min, max, sum float64
}

// seed initializes the accumulator with the first observed value.
func (m *metricAccum) seed(v float64) {
	m.min, m.max, m.sum = v, v, v
}

func (m *metricAccum) add(v float64) {
	if v < m.min {
		m.min = v
	}
	if v > m.max {
		m.max = v
	}
	m.sum += v
}

type sensorAccum struct {
	count       int
	temperature metricAccum
	wind        metricAccum
	humidity    metricAccum
	co2         metricAccum
}

// ComputeStats recomputes per-sensor statistics from scratch over every
// reading the store holds, streaming rows through a single scan. It never
// mutates the store; repeated calls against an unchanged store yield
// identical results. Sensors without readings produce no entry, and the
// result is ordered by ascending sensor ID (empty store gives an empty,
// non-nil slice).
//
// Means use plain float64 summation, which accumulates rounding error on
// extremely large row counts; fine for this workload, not for billions of
// rows.
func ComputeStats(ctx context.Context, store Store) ([]Stats, error) {
	accums := make(map[int]*sensorAccum)

	err := store.ScanReadings(ctx, func(r StoredReading) error {
		a, ok := accums[r.SensorID]
		if !ok {
			a = &sensorAccum{count: 1}
			a.temperature.seed(r.Temperature)
			a.wind.seed(r.Wind)
			a.humidity.seed(r.Humidity)
			a.co2.seed(r.CO2)
			accums[r.SensorID] = a
			return nil
		}

		a.count++
		a.temperature.add(r.Temperature)
		a.wind.add(r.Wind)
		a.humidity.add(r.Humidity)
		a.co2.add(r.CO2)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(accums))
	for id := range accums {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	stats := make([]Stats, 0, len(ids))
	for _, id := range ids {
		a := accums[id]
		n := float64(a.count)
		stats = append(stats, Stats{
			SensorID:       id,
			TemperatureMin: a.temperature.min,
			TemperatureMax: a.temperature.max,
			TemperatureAvg: a.temperature.sum / n,
			WindMin:        a.wind.min,
			WindMax:        a.wind.max,
			WindAvg:        a.wind.sum / n,
			HumidityMin:    a.humidity.min,
			HumidityMax:    a.humidity.max,
			HumidityAvg:    a.humidity.sum / n,
			CO2Min:         a.co2.min,
			CO2Max:         a.co2.max,
			CO2Avg:         a.co2.sum / n,
		})
	}
	return stats, nil
}

package sensor

import (
	"math"
	"math/rand"
	"sync"
)

// Measurement ranges for the synthetic sensors. Each quantity is drawn
// uniformly from its closed range and rounded to one decimal place.
const (
	temperatureMin, temperatureMax = 5.0, 18.0
	windMin, windMax               = 12.0, 24.0
	humidityMin, humidityMax       = 30.0, 60.0
	co2Min, co2Max                 = 400.0, 1600.0
)

// Generator produces batches of synthetic sensor readings. The randomness
// source is injected so tests can seed it deterministically.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator backed by src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate returns count readings, one per sensor, sensor IDs 1..count.
// count must be greater than zero. Generate performs no I/O, reads no clock,
// and is safe for concurrent use.
func (g *Generator) Generate(count int) ([]Reading, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	readings := make([]Reading, 0, count)
	for id := 1; id <= count; id++ {
		readings = append(readings, Reading{
			SensorID:    id,
			Temperature: g.uniform(temperatureMin, temperatureMax),
			Wind:        g.uniform(windMin, windMax),
			Humidity:    g.uniform(humidityMin, humidityMax),
			CO2:         g.uniform(co2Min, co2Max),
		})
	}
	return readings, nil
}

// uniform draws from [min, max] rounded to one decimal. Callers must hold mu.
func (g *Generator) uniform(min, max float64) float64 {
	v := min + g.rng.Float64()*(max-min)
	return math.Round(v*10) / 10
}

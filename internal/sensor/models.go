package sensor

import "time"

// Reading is a single sensor's measurements at one instant. JSON field names
// are the wire names used by the /generate response.
type Reading struct {
	SensorID    int     `json:"sensor_id"`
	Temperature float64 `json:"temperature"`
	Wind        float64 `json:"wind"`
	Humidity    float64 `json:"humidity"`
	CO2         float64 `json:"co2"`
}

// StoredReading is a reading as persisted. Every row of an ingestion batch
// shares the same ReadingTime.
type StoredReading struct {
	Reading
	ReadingTime time.Time `json:"reading_time_utc"` // always UTC
}

// Stats summarizes every stored reading of one sensor: minimum, maximum and
// arithmetic mean per measured quantity.
type Stats struct {
	SensorID int `json:"sensor_id"`

	TemperatureMin float64 `json:"temperature_min"`
	TemperatureMax float64 `json:"temperature_max"`
	TemperatureAvg float64 `json:"temperature_avg"`

	WindMin float64 `json:"wind_min"`
	WindMax float64 `json:"wind_max"`
	WindAvg float64 `json:"wind_avg"`

	HumidityMin float64 `json:"humidity_min"`
	HumidityMax float64 `json:"humidity_max"`
	HumidityAvg float64 `json:"humidity_avg"`

	CO2Min float64 `json:"co2_min"`
	CO2Max float64 `json:"co2_max"`
	CO2Avg float64 `json:"co2_avg"`
}

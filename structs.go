package main

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"EnvServer/bme280"
)

type SensorReading struct {
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
	Humidity    float64   `json:"humidity"`
	CO2         uint16    `json:"co2,omitempty"`
	Updated     time.Time `json:"-"`
	UpdatedStr  string    `json:"updated"`
}

func NewSensorReading(date time.Time) SensorReading {
	return SensorReading{
		Updated:    date,
		UpdatedStr: date.Format("2006-01-02 15:04:05"), // ISO 8601 without timezone
	}
}

// setEnv fills temperature (°C), pressure (hPa) and humidity (%RH).
func (r *SensorReading) setEnv(env physic.Env) {
	r.Temperature = env.Temperature.Celsius()
	r.Pressure = float64(env.Pressure) / float64(bme280.HectoPascal)
	r.Humidity = float64(env.Humidity) / float64(physic.PercentRH)
}

// readingStore holds the latest reading for the HTTP handlers.
type readingStore struct {
	mu      sync.RWMutex
	reading SensorReading
	raw     bme280.Raw
	ok      bool
}

func (s *readingStore) set(reading SensorReading, raw bme280.Raw) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading, s.raw, s.ok = reading, raw, true
}

func (s *readingStore) get() (SensorReading, bme280.Raw, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reading, s.raw, s.ok
}

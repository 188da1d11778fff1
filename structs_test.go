package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"

	"EnvServer/bme280"
)

func TestNewSensorReading(t *testing.T) {
	date := time.Date(2024, 3, 1, 13, 4, 5, 0, time.UTC)
	r := NewSensorReading(date)
	assert.Equal(t, date, r.Updated)
	assert.Equal(t, "2024-03-01 13:04:05", r.UpdatedStr)
}

func TestSensorReading_setEnv(t *testing.T) {
	var env physic.Env
	bme280.Raw{Temperature: 2508, Pressure: 25767233, Humidity: 76306}.Env(&env)

	r := NewSensorReading(time.Now())
	r.setEnv(env)
	assert.InDelta(t, 25.08, r.Temperature, 1e-6)
	assert.InDelta(t, 1006.5325390625, r.Pressure, 1e-9)
	assert.InDelta(t, 74.51757, r.Humidity, 1e-9)
}

func TestReadingStore(t *testing.T) {
	var s readingStore
	_, _, ok := s.get()
	assert.False(t, ok)

	reading := SensorReading{Temperature: 21.5}
	raw := bme280.Raw{Temperature: 2150}
	s.set(reading, raw)

	gotReading, gotRaw, ok := s.get()
	assert.True(t, ok)
	assert.Equal(t, reading, gotReading)
	assert.Equal(t, raw, gotRaw)
}

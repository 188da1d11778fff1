package main

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

type sensorMetrics struct {
	set *metrics.Set

	temperature *metrics.Gauge
	pressure    *metrics.Gauge
	humidity    *metrics.Gauge
	co2         *metrics.Gauge
	readings    *metrics.Counter
	errors      *metrics.Counter
}

func newSensorMetrics() *sensorMetrics {
	s := metrics.NewSet()
	return &sensorMetrics{
		set:         s,
		temperature: s.NewGauge("bme280_temperature_celsius", nil),
		pressure:    s.NewGauge("bme280_pressure_hpa", nil),
		humidity:    s.NewGauge("bme280_humidity_percent", nil),
		co2:         s.NewGauge("scd4x_co2_ppm", nil),
		readings:    s.NewCounter("sensor_readings_total"),
		errors:      s.NewCounter("sensor_errors_total"),
	}
}

func (m *sensorMetrics) observe(r SensorReading) {
	m.temperature.Set(r.Temperature)
	m.pressure.Set(r.Pressure)
	m.humidity.Set(r.Humidity)
	if r.CO2 != 0 {
		m.co2.Set(float64(r.CO2))
	}
	m.readings.Inc()
}

func (m *sensorMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"

	"EnvServer/bme280"
)

// lastReader exposes the integer-domain values behind the latest reading.
type lastReader interface {
	Last() (bme280.Raw, bool)
}

type readingPublisher interface {
	publish(SensorReading) error
}

// sampler turns the BME280 stream into SensorReadings.
type sampler struct {
	env     <-chan physic.Env
	bme     lastReader
	readCO2 func() (uint16, error) // nil when no CO2 sensor is attached
	store   *readingStore
	metrics *sensorMetrics
	pub     readingPublisher // nil when MQTT is disabled
	logger  *slog.Logger
	now     func() time.Time
}

func (s *sampler) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-s.env:
			if !ok {
				return errors.New("bme280 stopped sensing")
			}
			s.update(env)
		}
	}
}

func (s *sampler) update(env physic.Env) {
	reading := NewSensorReading(s.now())
	reading.setEnv(env)

	if s.readCO2 != nil {
		co2, err := s.readCO2()
		if err != nil {
			s.metrics.errors.Inc()
			s.logger.Warn("error while reading SCD4x data", "err", err)
		} else {
			reading.CO2 = co2
		}
	}

	raw, _ := s.bme.Last()
	s.store.set(reading, raw)
	s.metrics.observe(reading)
	s.logger.Debug("new reading",
		"temperature", reading.Temperature,
		"pressure", reading.Pressure,
		"humidity", reading.Humidity,
		"co2", reading.CO2,
	)

	if s.pub != nil {
		if err := s.pub.publish(reading); err != nil {
			s.metrics.errors.Inc()
			s.logger.Warn("failed to publish reading", "err", err)
		}
	}
}

// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound is returned when the chip id register does not hold
	// the BME280 id.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrCalibrationLength is returned when a calibration region has the
	// wrong size.
	ErrCalibrationLength = errors.New("unexpected calibration length")
	// ErrInvalidCalibration is returned for blank or zeroed calibration
	// data, as read from a missing or unpowered device.
	ErrInvalidCalibration = errors.New("invalid calibration data")
	// ErrNoFineTemperature is returned by the pressure and humidity
	// compensation when no temperature was compensated on the State.
	ErrNoFineTemperature = errors.New("temperature must be compensated first")
	// ErrMeasurementTimeout is returned when the device keeps reporting a
	// conversion in progress.
	ErrMeasurementTimeout = errors.New("measurement did not complete")
)

// TransportError is a failure of the underlying bus. It is never retried.
type TransportError struct {
	Op  string // "read" or "write"
	Reg byte
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

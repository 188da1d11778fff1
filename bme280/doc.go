// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bme280 controls a Bosch BME280 environmental sensor over I²C or SPI.
//
// The calibration and compensation engine is usable without a device:
// DecodeCalibration parses the two calibration regions read from the chip and
// the Calibration methods convert raw ADC counts into integer-scaled
// temperature, pressure and humidity.
//
// # Compensation order
//
// The pressure and humidity formulas depend on the fine temperature produced
// by the temperature formula of the same reading. That value is carried in a
// State owned by the caller. CompensateTemperature must run first for every
// reading; CompensatePressure and CompensateHumidity return
// ErrNoFineTemperature on a State that never saw a temperature.
//
// A Calibration is immutable and may be shared freely. A State must not be
// used from several goroutines without external locking. Dev does that
// locking for its own State.
//
// # Datasheet
//
// https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme280-ds002.pdf
//
// The URLs tend to rot, visit https://www.bosch-sensortec.com if they become
// invalid.
package bme280

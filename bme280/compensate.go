// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"periph.io/x/conn/v3/physic"
)

const (
	HectoPascal = 100 * physic.Pascal

	// humidityMax is 102.4 %RH in Q22.10 scaled by another 4096.
	humidityMax = 419430400
)

// State carries the fine temperature from the temperature formula to the
// pressure and humidity formulas of the same reading.
//
// The zero value holds no temperature.
type State struct {
	fine  int32
	valid bool
}

// FineTemperature returns the last fine temperature and whether one was
// computed.
func (s *State) FineTemperature() (int32, bool) {
	return s.fine, s.valid
}

// Sample is one set of raw ADC counts.
//
// Temperature and Pressure have 20 bits of resolution, Humidity 16.
type Sample struct {
	Temperature int32
	Pressure    int32
	Humidity    int32
}

// unpackSample decodes the burst read of 0xF7~0xFE.
func unpackSample(b []byte) Sample {
	// These values are 20 bits as per doc.
	return Sample{
		Pressure:    int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4,
		Temperature: int32(b[3])<<12 | int32(b[4])<<4 | int32(b[5])>>4,
		Humidity:    int32(b[6])<<8 | int32(b[7]),
	}
}

// Raw is a compensated reading in the integer domain of the formulas.
type Raw struct {
	// Temperature in 0.01 °C.
	Temperature int32 `json:"temperature"`
	// Pressure in Q24.8 Pa.
	Pressure uint32 `json:"pressure"`
	// Humidity in Q22.10 %RH.
	Humidity uint32 `json:"humidity"`
}

func (r Raw) Celsius() float64 {
	return float64(r.Temperature) / 100
}

func (r Raw) Pascal() float64 {
	return float64(r.Pressure) / 256
}

func (r Raw) RelativeHumidity() float64 {
	return float64(r.Humidity) / 1024
}

// Env converts r into periph units.
func (r Raw) Env(e *physic.Env) {
	// Convert CentiCelsius to Kelvin.
	e.Temperature = physic.Temperature(r.Temperature)*10*physic.MilliCelsius + physic.ZeroCelsius
	// It has 8 bits of fractional Pascal.
	e.Pressure = physic.Pressure(r.Pressure) * 15625 * physic.MicroPascal / 4
	// Convert base 1024 to base 100000.
	e.Humidity = physic.RelativeHumidity(int64(r.Humidity) * int64(physic.PercentRH) / 1024)
}

// CompensateTemperature returns temperature in °C, resolution is 0.01 °C.
// Output value of 5123 equals 51.23 C.
//
// raw has 20 bits of resolution. The fine temperature is stored in s.
func (c *Calibration) CompensateTemperature(raw int32, s *State) int32 {
	var1 := (((raw >> 3) - (int32(c.t1) << 1)) * int32(c.t2)) >> 11
	x := (raw >> 4) - int32(c.t1)
	var2 := (((x * x) >> 12) * int32(c.t3)) >> 14
	s.fine = var1 + var2
	s.valid = true
	return (s.fine*5 + 128) >> 8
}

// CompensatePressure returns pressure in Pa in Q24.8 format (24 integer
// bits and 8 fractional bits). Output value of 24674867 represents
// 24674867/256 = 96386.2 Pa = 963.862 hPa.
//
// raw has 20 bits of resolution. It returns 0 when the calibration would
// cause a division by zero.
func (c *Calibration) CompensatePressure(raw int32, s *State) (uint32, error) {
	if !s.valid {
		return 0, ErrNoFineTemperature
	}
	var1 := int64(s.fine) - 128000
	var2 := var1 * var1 * int64(c.p6)
	var2 += (var1 * int64(c.p5)) << 17
	var2 += int64(c.p4) << 35
	var1 = ((var1 * var1 * int64(c.p3)) >> 8) + ((var1 * int64(c.p2)) << 12)
	var1 = (((int64(1) << 47) + var1) * int64(c.p1)) >> 33
	if var1 == 0 {
		return 0, nil
	}
	p := 1048576 - int64(raw)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.p9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.p8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.p7) << 4)
	return uint32(p), nil
}

// CompensateHumidity returns humidity in %RH in Q22.10 format (22 integer
// and 10 fractional bits). Output value of 47445 represents 47445/1024 =
// 46.333%
//
// raw has 16 bits of resolution. The result saturates at 0% and 102.4%.
func (c *Calibration) CompensateHumidity(raw int32, s *State) (uint32, error) {
	if !s.valid {
		return 0, ErrNoFineTemperature
	}
	x := s.fine - 76800
	x1 := ((raw << 14) - (int32(c.h4) << 20) - (int32(c.h5) * x) + 16384) >> 15
	x2 := (((((((x * int32(c.h6)) >> 10) * (((x * int32(c.h3)) >> 11) + 32768)) >> 10) + 2097152) *
		int32(c.h2)) + 8192) >> 14
	x = x1 * x2
	x -= ((((x >> 15) * (x >> 15)) >> 7) * int32(c.h1)) >> 4
	x = min(max(x, 0), humidityMax)
	return uint32(x >> 12), nil
}

// compensate runs the three formulas in order. Pressure and humidity are
// left at zero when their oversampling is Off.
func (c *Calibration) compensate(smp Sample, s *State, o *Opts) (Raw, error) {
	var r Raw
	var err error
	r.Temperature = c.CompensateTemperature(smp.Temperature, s)
	if o.Pressure != Off {
		if r.Pressure, err = c.CompensatePressure(smp.Pressure, s); err != nil {
			return Raw{}, err
		}
	}
	if o.Humidity != Off {
		if r.Humidity, err = c.CompensateHumidity(smp.Humidity, s); err != nil {
			return Raw{}, err
		}
	}
	return r, nil
}

// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

// Raw counts of the datasheet example.
const (
	adcT = 519888
	adcP = 415148
	adcH = 33519
)

func TestCompensate_Datasheet(t *testing.T) {
	c := datasheetCalibration
	var s State

	assert.Equal(t, int32(2508), c.CompensateTemperature(adcT, &s))
	fine, ok := s.FineTemperature()
	require.True(t, ok)
	assert.Equal(t, int32(128422), fine)

	p, err := c.CompensatePressure(adcP, &s)
	require.NoError(t, err)
	assert.Equal(t, uint32(25767233), p)

	h, err := c.CompensateHumidity(adcH, &s)
	require.NoError(t, err)
	assert.Equal(t, uint32(76306), h)

	r := Raw{Temperature: 2508, Pressure: p, Humidity: h}
	assert.InDelta(t, 25.08, r.Celsius(), 1e-9)
	assert.InDelta(t, 100653.25390625, r.Pascal(), 1e-9)
	assert.InDelta(t, 74.517578125, r.RelativeHumidity(), 1e-9)
}

func TestCompensate_RequiresTemperature(t *testing.T) {
	c := datasheetCalibration
	var s State

	_, ok := s.FineTemperature()
	assert.False(t, ok)

	p, err := c.CompensatePressure(adcP, &s)
	assert.ErrorIs(t, err, ErrNoFineTemperature)
	assert.Zero(t, p)

	h, err := c.CompensateHumidity(adcH, &s)
	assert.ErrorIs(t, err, ErrNoFineTemperature)
	assert.Zero(t, h)
}

func TestCompensate_IndependentStates(t *testing.T) {
	c := datasheetCalibration
	var warm, cold State
	c.CompensateTemperature(adcT, &warm)
	c.CompensateTemperature(400000, &cold)

	fw, _ := warm.FineTemperature()
	fc, _ := cold.FineTemperature()
	assert.NotEqual(t, fw, fc)

	p, err := c.CompensatePressure(adcP, &warm)
	require.NoError(t, err)
	assert.Equal(t, uint32(25767233), p)
}

func TestCompensatePressure_DivisionGuard(t *testing.T) {
	c := datasheetCalibration
	c.p1 = 0
	var s State
	c.CompensateTemperature(adcT, &s)

	p, err := c.CompensatePressure(adcP, &s)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p)
}

func TestCompensateHumidity_Clamp(t *testing.T) {
	c := datasheetCalibration
	var s State
	c.CompensateTemperature(adcT, &s)

	// Both drive the intermediate value outside [0, 419430400].
	low, err := c.CompensateHumidity(0, &s)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), low)

	high, err := c.CompensateHumidity(0xFFFF, &s)
	require.NoError(t, err)
	assert.Equal(t, uint32(humidityMax>>12), high)
	assert.Equal(t, uint32(102400), high)
}

func TestUnpackSample(t *testing.T) {
	s := unpackSample([]byte{0x65, 0x5A, 0xC0, 0x7E, 0xED, 0x00, 0x82, 0xEF})
	assert.Equal(t, Sample{Temperature: adcT, Pressure: adcP, Humidity: adcH}, s)
}

func TestCalibration_compensate(t *testing.T) {
	c := datasheetCalibration
	smp := Sample{Temperature: adcT, Pressure: adcP, Humidity: adcH}

	var s State
	r, err := c.compensate(smp, &s, &DefaultOpts)
	require.NoError(t, err)
	assert.Equal(t, Raw{Temperature: 2508, Pressure: 25767233, Humidity: 76306}, r)

	s = State{}
	r, err = c.compensate(smp, &s, &Opts{Temperature: O1x})
	require.NoError(t, err)
	assert.Equal(t, Raw{Temperature: 2508}, r)
}

func TestRaw_Env(t *testing.T) {
	var e physic.Env
	Raw{Temperature: 2508, Pressure: 25767233, Humidity: 76306}.Env(&e)
	assert.Equal(t, 25080*physic.MilliCelsius+physic.ZeroCelsius, e.Temperature)
	assert.Equal(t, physic.Pressure(100653253906250), e.Pressure)
	assert.Equal(t, physic.RelativeHumidity(7451757), e.Humidity)
	assert.InDelta(t, 25.08, e.Temperature.Celsius(), 1e-6)
}

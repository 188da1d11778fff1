// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOversampling_String(t *testing.T) {
	data := []struct {
		o        Oversampling
		expected string
	}{
		{Off, "Off"},
		{O1x, "1x"},
		{O2x, "2x"},
		{O4x, "4x"},
		{O8x, "8x"},
		{O16x, "16x"},
		{Oversampling(100), "Oversampling(100)"},
	}
	for i, line := range data {
		assert.Equal(t, line.expected, line.o.String(), "#%d", i)
	}
}

func TestFilter_String(t *testing.T) {
	assert.Equal(t, "NoFilter", NoFilter.String())
	assert.Equal(t, "F2", F2.String())
	assert.Equal(t, "F16", F16.String())
	assert.Equal(t, "Filter(9)", Filter(9).String())
}

func TestStandby_String(t *testing.T) {
	assert.Equal(t, "500µs", s500us.String())
	assert.Equal(t, "62.5ms", s62ms.String())
	assert.Equal(t, "1s", s1s.String())
	assert.Equal(t, "standby(8)", standby(8).String())
}

func TestOpts_registers(t *testing.T) {
	o := Opts{Temperature: O2x, Pressure: O16x, Humidity: O1x, Filter: F16}
	assert.Equal(t, byte(0b010_101_00), o.ctrlMeas(sleep))
	assert.Equal(t, byte(0b010_101_01), o.ctrlMeas(forced))
	assert.Equal(t, byte(0b010_101_11), o.ctrlMeas(normal))
	assert.Equal(t, byte(0x01), o.ctrlHum())
	assert.Equal(t, byte(0b101_100_00), config(s1s, o.Filter))
	assert.Equal(t, byte(0x00), config(s500us, NoFilter))
}

func TestOpts_validate(t *testing.T) {
	assert.NoError(t, DefaultOpts.validate())
	assert.NoError(t, (&Opts{Temperature: O1x}).validate())
	assert.Error(t, (&Opts{Pressure: O1x, Humidity: O1x}).validate())
	assert.Error(t, (&Opts{Temperature: O1x, Pressure: 6}).validate())
	assert.Error(t, (&Opts{Temperature: O1x, Humidity: 7}).validate())
	assert.Error(t, (&Opts{Temperature: O1x, Filter: 5}).validate())
}

func TestOpts_measurementTime(t *testing.T) {
	assert.Equal(t, 30*time.Millisecond, DefaultOpts.measurementTime())
	assert.Equal(t, 3550*time.Microsecond, (&Opts{Temperature: O1x}).measurementTime())
}

func TestChooseStandby(t *testing.T) {
	m := DefaultOpts.measurementTime()
	assert.Equal(t, s500us, chooseStandby(time.Millisecond, m))
	assert.Equal(t, s20ms, chooseStandby(50*time.Millisecond, m))
	assert.Equal(t, s62ms, chooseStandby(100*time.Millisecond, m))
	assert.Equal(t, s500ms, chooseStandby(time.Second, m))
	assert.Equal(t, s1s, chooseStandby(5*time.Second, m))
}

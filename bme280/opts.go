// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"errors"
	"fmt"
	"time"
)

// Oversampling affects how much time is taken to measure each of temperature,
// pressure and humidity.
//
// Using high oversampling and low standby results in highest power
// consumption, but this is still below 1mA so we generally don't care.
type Oversampling uint8

// Possible oversampling values.
//
// The higher the more time and power it takes to take a measurement. Even at
// 16x for all 3 sensors, it is less than 100ms albeit increased power
// consumption may increase the temperature reading.
const (
	Off  Oversampling = 0
	O1x  Oversampling = 1
	O2x  Oversampling = 2
	O4x  Oversampling = 3
	O8x  Oversampling = 4
	O16x Oversampling = 5
)

const oversamplingName = "Off1x2x4x8x16x"

var oversamplingIndex = [...]uint8{0, 3, 5, 7, 9, 11, 14}

func (o Oversampling) String() string {
	if o >= Oversampling(len(oversamplingIndex)-1) {
		return fmt.Sprintf("Oversampling(%d)", o)
	}
	return oversamplingName[oversamplingIndex[o]:oversamplingIndex[o+1]]
}

func (o Oversampling) asValue() int {
	switch o {
	case O1x:
		return 1
	case O2x:
		return 2
	case O4x:
		return 4
	case O8x:
		return 8
	case O16x:
		return 16
	default:
		return 0
	}
}

// Filter specifies the internal IIR filter to get steadier measurements.
//
// Oversampling will get better measurements than filtering but at a larger
// power consumption cost, which may slightly affect temperature measurement.
type Filter uint8

// Possible filtering values.
//
// The higher the filter, the slower the value converges but the more stable
// the measurement is.
const (
	NoFilter Filter = 0
	F2       Filter = 1
	F4       Filter = 2
	F8       Filter = 3
	F16      Filter = 4
)

func (f Filter) String() string {
	switch f {
	case NoFilter:
		return "NoFilter"
	case F2, F4, F8, F16:
		return fmt.Sprintf("F%d", 1<<f)
	default:
		return fmt.Sprintf("Filter(%d)", f)
	}
}

// standby is the inactive time between two measurements in normal mode.
type standby uint8

// Possible standby values, these determines the refresh rate.
const (
	s500us standby = 0
	s62ms  standby = 1
	s125ms standby = 2
	s250ms standby = 3
	s500ms standby = 4
	s1s    standby = 5
	s10ms  standby = 6
	s20ms  standby = 7
)

const standbyCount = 8

var standbyDuration = [standbyCount]time.Duration{
	s500us: 500 * time.Microsecond,
	s62ms:  62500 * time.Microsecond,
	s125ms: 125 * time.Millisecond,
	s250ms: 250 * time.Millisecond,
	s500ms: 500 * time.Millisecond,
	s1s:    time.Second,
	s10ms:  10 * time.Millisecond,
	s20ms:  20 * time.Millisecond,
}

func (s standby) String() string {
	if s >= standbyCount {
		return fmt.Sprintf("standby(%d)", s)
	}
	return standbyDuration[s].String()
}

// chooseStandby returns the longest standby that still produces a fresh
// measurement within interval.
func chooseStandby(interval, measurement time.Duration) standby {
	best := s500us
	for s := standby(0); s < standbyCount; s++ {
		d := standbyDuration[s]
		if d+measurement <= interval && d > standbyDuration[best] {
			best = s
		}
	}
	return best
}

// mode is the operating mode.
type mode byte

const (
	sleep  mode = 0 // no operation, all registers accessible, lowest power, selected after startup
	forced mode = 1 // perform one measurement, store results and return to sleep mode
	normal mode = 3 // perpetual cycling of measurements and inactive periods
)

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Temperature: O4x,
	Pressure:    O4x,
	Humidity:    O4x,
}

// Opts defines the options for the device.
//
// Recommended sensing settings as per the datasheet:
//
// → Weather monitoring: manual sampling once per minute, all sensors O1x.
// Power consumption: 0.16µA, filter NoFilter. RMS noise: 3.3Pa / 30cm, 0.07%RH.
//
// → Humidity sensing: manual sampling once per second, pressure Off, humidity
// and temperature O1X, filter NoFilter. Power consumption: 2.9µA, 0.07%RH.
//
// → Indoor navigation: continuous sampling at 40ms with filter F16, pressure
// O16x, temperature O2x, humidity O1x, filter F16. Power consumption 633µA.
// RMS noise: 0.2Pa / 1.7cm.
//
// See the datasheet for more details about the trade offs.
type Opts struct {
	// Temperature must be measured for pressure and humidity to be measured.
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	// Filter is only used while using SenseContinuous()
	Filter Filter
}

func (o *Opts) validate() error {
	if o.Temperature == Off {
		return errors.New("temperature oversampling is required")
	}
	for _, v := range []Oversampling{o.Temperature, o.Pressure, o.Humidity} {
		if v > O16x {
			return fmt.Errorf("invalid oversampling %s", v)
		}
	}
	if o.Filter > F16 {
		return fmt.Errorf("invalid filter %s", o.Filter)
	}
	return nil
}

// ctrlMeas is the value of the ctrl_meas register.
func (o *Opts) ctrlMeas(m mode) byte {
	return byte(o.Temperature)<<5 | byte(o.Pressure)<<2 | byte(m)
}

// ctrlHum is the value of the ctrl_hum register. It only takes effect after
// the next write to ctrl_meas.
func (o *Opts) ctrlHum() byte {
	return byte(o.Humidity)
}

// config is the value of the config register.
func config(s standby, f Filter) byte {
	return byte(s)<<5 | byte(f)<<2
}

// measurementTime is the maximum conversion time for a forced measurement,
// per the datasheet appendix B.
func (o *Opts) measurementTime() time.Duration {
	us := 1250 + 2300*o.Temperature.asValue()
	if o.Pressure != Off {
		us += 2300*o.Pressure.asValue() + 575
	}
	if o.Humidity != Off {
		us += 2300*o.Humidity.asValue() + 575
	}
	return time.Duration(us) * time.Microsecond
}

// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	AddrChipID byte = 0xD0 // read-only, should contain 0x60
	AddrReset  byte = 0xE0

	// calibration ranges

	addrCalAStart byte = 0x88
	addrCalAEnd   byte = 0xA1
	addrCalBStart byte = 0xE1
	addrCalBEnd   byte = 0xE7

	// control registers from this point on

	AddrCtrlHum  byte = 0xF2
	AddrStatus   byte = 0xF3
	AddrCtrlMeas byte = 0xF4
	AddrConfig   byte = 0xF5

	// data registers, read in a single burst from AddrPressMSB

	AddrPressMSB byte = 0xF7
	AddrTempMSB  byte = 0xFA
	AddrHumMSB   byte = 0xFD
)

const (
	chipID     = 0x60
	resetValue = 0xB6

	// statusMeasuring is set while a conversion is running.
	statusMeasuring = 1 << 3

	// maxPolls bounds the status polling after the expected conversion time.
	maxPolls = 10
)

// NewI2C returns an object that communicates over I²C to a BME280
// environmental sensor.
//
// The address must be 0x76 or 0x77. The value used depends on HW
// configuration of the sensor's SDO pin.
//
// It is recommended to call Halt() when done with the device so it stops
// sampling.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	switch addr {
	case 0x76, 0x77:
	default:
		return nil, errors.New("bme280: given address not supported by device")
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, isSPI: false}
	if err := d.makeDev(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// NewSPI returns an object that communicates over SPI to a BME280
// environmental sensor.
//
// It is recommended to call Halt() when done with the device so it stops
// sampling.
//
// When using SPI, the CS line must be used.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	// It works both in Mode0 and Mode3.
	c, err := p.Connect(10*physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("bme280: %w", &TransportError{Op: "connect", Err: err})
	}
	d := &Dev{d: c, isSPI: true}
	if err := d.makeDev(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is a handle to an initialized BME280 device.
type Dev struct {
	d      conn.Conn
	isSPI  bool
	opts   Opts
	name   string
	cal    Calibration
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	last    Raw
	hasLast bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.name, d.d)
}

// SetLogger sets the logger used by SenseContinuous to report failures.
func (d *Dev) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = l
}

// Calibration returns the constants read from the device.
func (d *Dev) Calibration() Calibration {
	return d.cal
}

// Sense requests a one time measurement as °C, kPa and % of relative humidity.
//
// On error e is left untouched.
func (d *Dev) Sense(e *physic.Env) error {
	r, err := d.SenseRaw()
	if err != nil {
		return err
	}
	r.Env(e)
	return nil
}

// SenseRaw requests a one time measurement and returns it in the integer
// domain of the compensation formulas.
func (d *Dev) SenseRaw() (Raw, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return Raw{}, d.wrap(errors.New("already sensing continuously"))
	}

	err := d.writeCommands([]byte{
		// ctrl_meas
		AddrCtrlMeas, d.opts.ctrlMeas(forced),
	})
	if err != nil {
		return Raw{}, err
	}
	doSleep(d.opts.measurementTime())
	if err := d.waitIdle(); err != nil {
		return Raw{}, err
	}
	return d.read()
}

// Last returns the most recent reading, if any.
func (d *Dev) Last() (Raw, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.hasLast
}

// SenseContinuous returns measurements as °C, kPa and % of relative humidity
// on a continuous basis.
//
// The application must call Halt() to stop the sensing when done to stop the
// sensor and close the channel.
//
// It's the responsibility of the caller to retrieve the values from the
// channel as fast as possible, otherwise the interval may not be respected.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, d.wrap(fmt.Errorf("invalid interval %s", interval))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		// Don't send the stop command to the device.
		d.halt()
	}

	s := chooseStandby(interval, d.opts.measurementTime())
	err := d.writeCommands([]byte{
		// ctrl_meas; config writes are ignored outside of sleep mode.
		AddrCtrlMeas, d.opts.ctrlMeas(sleep),
		AddrConfig, config(s, d.opts.Filter),
		AddrCtrlMeas, d.opts.ctrlMeas(normal),
	})
	if err != nil {
		return nil, err
	}

	sensing := make(chan physic.Env)
	stop := make(chan struct{})
	d.stop = stop
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		d.sensingContinuous(interval, sensing, stop)
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = 15625 * physic.MicroPascal / 4
	e.Humidity = physic.PercentRH / 1024
}

// Halt stops the BME280 from acquiring measurements as initiated by
// SenseContinuous().
//
// It is recommended to call this function before terminating the process to
// reduce idle power usage and a goroutine leak.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	d.halt()

	return d.writeCommands([]byte{
		// config
		AddrConfig, config(s500us, NoFilter),
		// ctrl_meas
		AddrCtrlMeas, d.opts.ctrlMeas(sleep),
	})
}

// Reset issues a soft reset and restores the configuration.
//
// The calibration is kept; it lives in non-volatile memory.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return d.wrap(errors.New("already sensing continuously"))
	}
	if err := d.writeCommands([]byte{AddrReset, resetValue}); err != nil {
		return err
	}
	// Start-up time is 2ms.
	doSleep(2 * time.Millisecond)
	d.state = State{}
	return d.configure()
}

//

// halt stops the sensing goroutine.
//
// It must be called with d.mu lock held. The lock is released while waiting
// for the goroutine, which may itself be blocked on it.
func (d *Dev) halt() {
	close(d.stop)
	d.stop = nil
	d.mu.Unlock()
	d.wg.Wait()
	d.mu.Lock()
}

func (d *Dev) makeDev(opts *Opts) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("bme280: %w", err)
	}
	d.opts = *opts
	d.name = "BME280"
	if d.logger == nil {
		d.logger = slog.Default()
	}

	var id [1]byte
	if err := d.readReg(AddrChipID, id[:]); err != nil {
		return err
	}
	if id[0] != chipID {
		return d.wrap(fmt.Errorf("%w: unexpected chip id 0x%02X", ErrDeviceNotFound, id[0]))
	}

	var calA [CalibrationALen]byte
	if err := d.readReg(addrCalAStart, calA[:]); err != nil {
		return err
	}
	// Read calibration data h2~6
	var calB [CalibrationBLen]byte
	if err := d.readReg(addrCalBStart, calB[:]); err != nil {
		return err
	}
	cal, err := DecodeCalibration(calA[:], calB[:])
	if err != nil {
		return d.wrap(err)
	}
	d.cal = cal
	return d.configure()
}

func (d *Dev) configure() error {
	return d.writeCommands([]byte{
		// ctrl_meas; put it to sleep otherwise the config update may be
		// ignored. This is really just in case the device was somehow put
		// into normal but was not Halt'ed.
		AddrCtrlMeas, d.opts.ctrlMeas(sleep),
		// ctrl_hum
		AddrCtrlHum, d.opts.ctrlHum(),
		// config
		AddrConfig, config(s500us, NoFilter),
		// ctrl_meas must be re-written last.
		AddrCtrlMeas, d.opts.ctrlMeas(sleep),
	})
}

func (d *Dev) sensingContinuous(interval time.Duration, sensing chan<- physic.Env, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	// The data registers hold reset values until the first conversion ends.
	doSleep(d.opts.measurementTime())
	for {
		// Do one initial sensing right away.
		e := physic.Env{}
		d.mu.Lock()
		r, err := d.read()
		logger := d.logger
		d.mu.Unlock()
		if err != nil {
			logger.Error("failed to sense", "dev", d.String(), "err", err)
			return
		}
		r.Env(&e)
		select {
		case sensing <- e:
		case <-stop:
			return
		}
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

// read burst-reads the data registers and compensates them.
//
// It must be called with d.mu lock held.
func (d *Dev) read() (Raw, error) {
	// All registers must be read in a single pass
	// Pressure: 0xF7~0xF9
	// Temperature: 0xFA~0xFC
	// Humidity: 0xFD~0xFE
	buf := [8]byte{}
	if err := d.readReg(AddrPressMSB, buf[:]); err != nil {
		return Raw{}, err
	}
	r, err := d.cal.compensate(unpackSample(buf[:]), &d.state, &d.opts)
	if err != nil {
		return Raw{}, d.wrap(err)
	}
	d.last, d.hasLast = r, true
	return r, nil
}

// waitIdle polls the status register until the conversion is done.
//
// It must be called with d.mu lock held.
func (d *Dev) waitIdle() error {
	for i := 0; i < maxPolls; i++ {
		idle, err := d.isIdle()
		if err != nil {
			return err
		}
		if idle {
			return nil
		}
		doSleep(time.Millisecond)
	}
	return d.wrap(ErrMeasurementTimeout)
}

func (d *Dev) isIdle() (bool, error) {
	// status
	v := [1]byte{}
	if err := d.readReg(AddrStatus, v[:]); err != nil {
		return false, err
	}
	// Make sure bit 3 is cleared. Bit 0 is only important at device boot up.
	return v[0]&statusMeasuring == 0, nil
}

func (d *Dev) readReg(reg uint8, b []byte) error {
	if d.isSPI {
		// MSB is 0 for write and 1 for read.
		read := make([]byte, len(b)+1)
		write := make([]byte, len(read))
		// Rest of the write buffer is ignored.
		write[0] = reg | 0x80
		if err := d.d.Tx(write, read); err != nil {
			return d.wrap(&TransportError{Op: "read", Reg: reg, Err: err})
		}
		copy(b, read[1:])
		return nil
	}
	if err := d.d.Tx([]byte{reg}, b); err != nil {
		return d.wrap(&TransportError{Op: "read", Reg: reg, Err: err})
	}
	return nil
}

// writeCommands writes a command to the device.
//
// Warning: b may be modified!
func (d *Dev) writeCommands(b []byte) error {
	if d.isSPI {
		// set RW bit 7 to 0.
		for i := 0; i < len(b); i += 2 {
			b[i] &^= 0x80
		}
	}
	if err := d.d.Tx(b, nil); err != nil {
		return d.wrap(&TransportError{Op: "write", Reg: b[0], Err: err})
	}
	return nil
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(d.name), err)
}

var doSleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"EnvServer/bme280"
)

type ProgramArgs struct {
	// Server Options
	Host string `short:"H" long:"host" env:"ENV_HOST" default:"127.0.0.1" description:"IP to listen on"`
	Port uint16 `short:"P" long:"port" env:"ENV_PORT" default:"27315" description:"Port to listen on"`

	// Sensor Options
	Interval    uint16 `short:"I" long:"interval" env:"ENV_INTERVAL" default:"5" description:"Interval between readings in seconds"`
	I2CDevice   string `short:"D" long:"i2cdev" env:"ENV_I2C_DEVICE" description:"The used I2C device (default: auto)"`
	Address     string `short:"A" long:"address" env:"ENV_BME280_ADDRESS" default:"0x76" description:"I2C address of the BME280" choice:"0x76" choice:"0x77"`
	Temperature string `long:"os-temperature" default:"4x" description:"Temperature oversampling" choice:"1x" choice:"2x" choice:"4x" choice:"8x" choice:"16x"`
	Pressure    string `long:"os-pressure" default:"4x" description:"Pressure oversampling" choice:"off" choice:"1x" choice:"2x" choice:"4x" choice:"8x" choice:"16x"`
	Humidity    string `long:"os-humidity" default:"4x" description:"Humidity oversampling" choice:"off" choice:"1x" choice:"2x" choice:"4x" choice:"8x" choice:"16x"`
	Filter      string `long:"filter" default:"4" description:"IIR filter coefficient" choice:"off" choice:"2" choice:"4" choice:"8" choice:"16"`
	CO2         bool   `long:"co2" env:"ENV_CO2" description:"Also read CO2 from an SCD4x on the same bus"`

	// MQTT Options
	MQTTBroker   string `long:"mqtt-broker" env:"ENV_MQTT_BROKER" description:"MQTT broker URL, e.g. tcp://localhost:1883 (default: disabled)"`
	MQTTTopic    string `long:"mqtt-topic" env:"ENV_MQTT_TOPIC" default:"envserver/reading" description:"Topic readings are published to"`
	MQTTClientID string `long:"mqtt-client-id" env:"ENV_MQTT_CLIENT_ID" default:"envserver" description:"MQTT client id"`

	// Logging Options
	LogLevel  string `long:"log-level" env:"ENV_LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	LogFormat string `long:"log-format" env:"ENV_LOG_FORMAT" default:"text" description:"Log format" choice:"text" choice:"json"`
}

const (
	MIN_TIMEOUT_SECONDS = 2
)

var oversamplingByName = map[string]bme280.Oversampling{
	"off": bme280.Off,
	"1x":  bme280.O1x,
	"2x":  bme280.O2x,
	"4x":  bme280.O4x,
	"8x":  bme280.O8x,
	"16x": bme280.O16x,
}

var filterByName = map[string]bme280.Filter{
	"off": bme280.NoFilter,
	"2":   bme280.F2,
	"4":   bme280.F4,
	"8":   bme280.F8,
	"16":  bme280.F16,
}

func (a *ProgramArgs) validate() error {
	if a.Interval == 0 {
		return errors.New("interval must be at least 1 second")
	}
	if _, err := a.address(); err != nil {
		return err
	}
	if _, err := a.sensorOpts(); err != nil {
		return err
	}
	if _, err := parseLogLevel(a.LogLevel); err != nil {
		return err
	}
	if a.MQTTBroker != "" && a.MQTTTopic == "" {
		return errors.New("mqtt topic must not be empty")
	}
	return nil
}

func (a *ProgramArgs) interval() time.Duration {
	return time.Duration(a.Interval) * time.Second
}

func (a *ProgramArgs) timeout() time.Duration {
	return time.Duration(max(MIN_TIMEOUT_SECONDS, int(a.Interval))) * time.Second
}

func (a *ProgramArgs) address() (uint16, error) {
	v, err := strconv.ParseUint(a.Address, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", a.Address, err)
	}
	return uint16(v), nil
}

func (a *ProgramArgs) sensorOpts() (bme280.Opts, error) {
	var o bme280.Opts
	var ok bool
	if o.Temperature, ok = oversamplingByName[a.Temperature]; !ok || o.Temperature == bme280.Off {
		return o, fmt.Errorf("invalid temperature oversampling %q", a.Temperature)
	}
	if o.Pressure, ok = oversamplingByName[a.Pressure]; !ok {
		return o, fmt.Errorf("invalid pressure oversampling %q", a.Pressure)
	}
	if o.Humidity, ok = oversamplingByName[a.Humidity]; !ok {
		return o, fmt.Errorf("invalid humidity oversampling %q", a.Humidity)
	}
	if o.Filter, ok = filterByName[a.Filter]; !ok {
		return o, fmt.Errorf("invalid filter %q", a.Filter)
	}
	return o, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

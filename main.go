package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aldernero/scd4x"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"EnvServer/bme280"
)

func getOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP, nil
}

func setupI2CBus(i2cdev string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}

	bus, err := i2creg.Open(i2cdev)
	if err != nil {
		return nil, fmt.Errorf("couldn't open I2C device: %w", err)
	}

	return bus, nil
}

func setupBMESensor(i2cBus i2c.Bus, args *ProgramArgs, logger *slog.Logger) (*bme280.Dev, error) {
	deviceOpts, err := args.sensorOpts()
	if err != nil {
		return nil, err
	}
	addr, err := args.address()
	if err != nil {
		return nil, err
	}

	dev, err := bme280.NewI2C(i2cBus, addr, &deviceOpts)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize sensor: %w", err)
	}
	dev.SetLogger(logger)

	cal := dev.Calibration()
	logger.Debug("bme280 ready", "dev", dev.String(), "calibration", cal.String())
	return dev, nil
}

func setupSCDSensor(i2cBus i2c.BusCloser, logger *slog.Logger) (*scd4x.SCD4x, error) {
	sensor, err := scd4x.SensorInit(i2cBus, false)
	if err != nil {
		return nil, err
	}

	logger.Info("initializing SCD4x")
	if err := sensor.StopMeasurements(); err != nil {
		return nil, fmt.Errorf("error while trying to stop periodic measurements: %w", err)
	}
	if err := sensor.StartMeasurements(); err != nil {
		return nil, fmt.Errorf("error while trying to start periodic measurements: %w", err)
	}

	return sensor, nil
}

func main() {
	args := ProgramArgs{}
	argParser := flags.NewParser(&args, flags.Default)

	if _, err := argParser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	level, err := parseLogLevel(args.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := newLogger(os.Stderr, args.LogFormat, level)
	slog.SetDefault(logger)

	if err := run(&args, logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args *ProgramArgs, logger *slog.Logger) error {
	if err := args.validate(); err != nil {
		return err
	}

	// Boring i2c setup
	bus, err := setupI2CBus(args.I2CDevice)
	if err != nil {
		return err
	}
	defer bus.Close()

	bmeDev, err := setupBMESensor(bus, args, logger)
	if err != nil {
		return err
	}

	// SenseContinuous will take one reading immediately before looping
	readingChannel, err := bmeDev.SenseContinuous(args.interval())
	if err != nil {
		return fmt.Errorf("couldn't start taking readings: %w", err)
	}
	defer bmeDev.Halt()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := newSensorMetrics()
	store := &readingStore{}
	s := &sampler{
		env:     readingChannel,
		bme:     bmeDev,
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}

	if args.CO2 {
		scdDev, err := setupSCDSensor(bus, logger)
		if err != nil {
			return err
		}
		defer scdDev.StopMeasurements()
		s.readCO2 = func() (uint16, error) {
			data, err := scdDev.ReadMeasurement()
			if err != nil {
				return 0, err
			}
			return data.CO2, nil
		}
	}

	if args.MQTTBroker != "" {
		pub := newPublisher(args, logger)
		if err := pub.connect(ctx); err != nil {
			return err
		}
		defer pub.close()
		s.pub = pub
	}

	addr := fmt.Sprintf("%s:%d", args.Host, args.Port)
	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  args.timeout(),
		WriteTimeout: args.timeout(),
		IdleTimeout:  120 * time.Second,
		Handler:      newRouter(store, m, logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.run(ctx)
	})
	g.Go(func() error {
		if args.Host == "0.0.0.0" {
			localIP, err := getOutboundIP() // resolve local IP for easier debugging
			if err != nil {
				logger.Warn("couldn't resolve outbound IP", "err", err)
			}
			logger.Info("listening", "addr", addr, "ip", localIP)
		} else {
			logger.Info("listening", "addr", addr)
		}

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		// Give the server a timeout period of 4 seconds
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		// Doesn't block if no connections, but will otherwise wait until the timeout deadline.
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

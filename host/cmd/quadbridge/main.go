// quadbridge connects a physical mouse to a quadrature encoder board:
// it reads relative motion from a Linux input device, forwards it over
// the serial link, and exposes a websocket console for calibration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stanley-fork/bluepad32/host/bridge"
	"github.com/stanley-fork/bluepad32/host/console"
	"github.com/stanley-fork/bluepad32/host/link"
	"github.com/stanley-fork/bluepad32/host/serial"
)

var (
	configPath = flag.String("config", "", "YAML config file path")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	inputDev   = flag.String("input", "", "evdev input device path (overrides config)")
	listen     = flag.String("listen", "", "Websocket console address (overrides config)")
	logLevel   = flag.String("log-level", "", "Log level: error, warn, info, debug (overrides config)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := console.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *device != "" {
		cfg.Serial = *device
	}
	if *inputDev != "" {
		cfg.InputDevice = *inputDev
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := console.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := console.SetupLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serialCfg := serial.DefaultConfig(cfg.Serial)
	serialCfg.Baud = cfg.Baud
	port, err := serial.Open(serialCfg)
	if err != nil {
		return err
	}

	l := link.New(port, func(err error) {
		log.Error("serial link failed", "err", err)
		stop()
	})
	defer l.Close()
	log.Info("connected to encoder board", "device", cfg.Serial)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.InputDevice != "" {
		dev, err := bridge.OpenDevice(cfg.InputDevice, cfg.Grab)
		if err != nil {
			return err
		}
		log.Info("reading input device",
			"device", cfg.InputDevice, "name", dev.Name(), "grab", cfg.Grab)

		b := bridge.NewBridge(dev, l, cfg.Port, time.Duration(cfg.FlushInterval), log)
		if err := l.Start(cfg.Port); err != nil {
			return err
		}
		g.Go(func() error {
			err := b.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if cfg.Listen != "" {
		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: console.NewServer(l, log),
		}
		log.Info("console listening", "addr", cfg.Listen)
		g.Go(func() error {
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.InputDevice == "" && cfg.Listen == "" {
		return fmt.Errorf("nothing to do: configure input_device or listen")
	}

	err = g.Wait()
	log.Info("shutting down")
	return err
}

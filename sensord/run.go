package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/itohio/sensord/pkg/config"
	"github.com/itohio/sensord/pkg/export"
	"github.com/itohio/sensord/pkg/poll"
	"github.com/itohio/sensord/pkg/sensor"
	"github.com/itohio/sensord/pkg/store"
)

type runOptions struct {
	*rootOptions
	Mock   bool
	Port   string
	Listen string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the sensor and serve the reading history",
		Long: `Poll the sensor and serve the reading history.

Frames are read from the configured serial port (or a simulated sensor with
--mock) and recorded into bounded buffers. When an HTTP listen address is
configured, GET /readings returns the buffers as JSON.

Example:
  sensord run --port /dev/ttyUSB0 --listen :8080
  sensord run --mock --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if opts.Port != "" {
				cfg.Serial.Port = opts.Port
			}
			if cmd.Flags().Changed("listen") {
				cfg.HTTP.Listen = opts.Listen
			}
			initLogging(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSensor(ctx, cfg, newDevice(cfg, opts.Mock), slog.Default())
		},
	}

	cmd.Flags().BoolVar(&opts.Mock, "mock", false, "use the simulated sensor instead of a serial port")
	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "serial port, overrides config")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address, empty disables the server")

	return cmd
}

func newDevice(cfg *config.Config, mock bool) sensor.Device {
	if mock {
		return sensor.NewMock(&cfg.Mock)
	}
	return sensor.NewSerial(cfg.Serial.Port, sensor.OptionsFromConfig(cfg.Serial), cfg.Poll.BufferSize,
		sensor.WithReadTimeout(cfg.Poll.Interval))
}

func capacities(c config.CapacityConfig) store.Capacities {
	return store.Capacities{
		Readings:     c.Readings,
		SensorErrors: c.SensorErrors,
		ParseErrors:  c.ParseErrors,
		Frames:       c.Frames,
	}
}

// runSensor records frames from dev until ctx is cancelled or the device
// stops delivering frames.
func runSensor(ctx context.Context, cfg *config.Config, dev sensor.Device, log *slog.Logger) error {
	st := store.New[poll.Stamp](capacities(cfg.Capacity))

	caps := st.Capacities()
	log.Info("store ready",
		"readings", caps.Readings,
		"sensor_errors", caps.SensorErrors,
		"parse_errors", caps.ParseErrors,
		"frames", caps.Frames)

	if err := dev.Connect(); err != nil {
		return fmt.Errorf("failed to connect sensor: %w", err)
	}
	defer dev.Close()

	poller := poll.New[poll.Stamp](st, poll.NewStamper(nil), log)

	var counts [store.ParseError + 1]int
	poller.OnResult(func(_ poll.Stamp, res store.Result) {
		counts[res.Status]++
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The poller finishing means the device is gone; stop the server too.
		defer cancel()
		return poller.Run(ctx, dev.Frames())
	})

	if cfg.HTTP.Listen != "" {
		srv := export.NewServer[poll.Stamp](st, export.WithLogger[poll.Stamp](log))
		log.Info("export enabled", "listen", cfg.HTTP.Listen, "boot_id", srv.BootID().String())
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.HTTP.Listen)
		})
	}

	err := g.Wait()

	attrs := []any{
		"new_readings", counts[store.NewReading],
		"repeated", counts[store.NoNewReading],
		"parse_errors", counts[store.ParseError],
	}
	if latest, ok := st.Latest(); ok {
		attrs = append(attrs, "latest", latest.String())
	}
	log.Info("sensor stopped", attrs...)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"thingspeak-uploader/internal/admin"
	"thingspeak-uploader/internal/client"
	"thingspeak-uploader/internal/config"
	"thingspeak-uploader/internal/logging"
	"thingspeak-uploader/internal/metrics"
	"thingspeak-uploader/internal/sensor"
)

var (
	runOutput  string
	runNoAdmin bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read the sensor and upload to ThingSpeak until interrupted",
	Long:  "run reads the configured sensor and uploads every reading to the loop channel, waiting out the free API rate limit between sends.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		output, err := resolveOutput(runOutput, stdoutIsTerminal())
		if err != nil {
			return err
		}
		rs, err := newRecorders(cfg, output)
		if err != nil {
			return err
		}
		defer rs.cleanup()

		prom := metrics.New(nil)
		c, err := newClient(cfg, rs, prom)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, rs.logger)

		if !runNoAdmin && cfg.Admin.Addr != "" {
			srv := admin.NewServer(rs.latest, prom.Handler(), channelNames(cfg), c.TimeLimit())
			go func() {
				rs.logger.Info("admin server listening", "addr", cfg.Admin.Addr)
				if err := srv.Start(ctx, cfg.Admin.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					rs.logger.Error("admin server failed", "err", err)
				}
			}()
		}

		loop := &sensor.Loop{
			Client:          c,
			Reader:          sensor.NewSimulated(cfg.Loop.TemperatureField, cfg.Loop.HumidityField, cfg.Loop.Seed),
			Channel:         cfg.Loop.Channel,
			MaxReadFailures: cfg.Loop.MaxReadFailures,
		}
		rs.logger.Info("upload loop started", "channel", loop.Channel, "time_limit", c.TimeLimit())
		err = loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			rs.logger.Info("upload loop stopped")
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runOutput, "output", outputAuto, "Record output: auto, tui, json or none")
	runCmd.Flags().BoolVar(&runNoAdmin, "no-admin", false, "Do not start the status/metrics HTTP server")
}

// newClient wires the configured transport and registry into a client.
// observer may be nil.
func newClient(cfg *config.Config, rs *recorders, observer client.Observer) (*client.Client, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	tr, err := cfg.Transport(rs.logger)
	if err != nil {
		return nil, err
	}
	return client.New(reg, tr, client.Options{
		Host:     cfg.API.Host,
		Logger:   rs.logger,
		Observer: observer,
		Recorder: rs.recorder,
	}), nil
}

func channelNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		names = append(names, ch.Name)
	}
	return names
}

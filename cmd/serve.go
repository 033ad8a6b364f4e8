package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/netwatch-oss/triggerkit/internal/api"
	"github.com/netwatch-oss/triggerkit/internal/conf"
	"github.com/netwatch-oss/triggerkit/internal/datastore"
	"github.com/netwatch-oss/triggerkit/internal/logger"
	"github.com/netwatch-oss/triggerkit/internal/observability/metrics"
	"github.com/netwatch-oss/triggerkit/internal/publish"
)

const mqttConnectTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger console API backed by the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
	cmd.Flags().String("listen", "", "listen address (default :3000)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	if err := a.v.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
		return err
	}
	s := a.settings
	if listen := a.v.GetString("server.listen"); listen != "" {
		s.Server.Listen = listen
	}
	ctx := cmd.Context()

	db, err := datastore.Open(s.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	var stats *metrics.Metrics
	opts := []api.Option{api.WithLogger(a.log), api.WithToken(s.Server.Token)}
	if s.Server.Metrics {
		stats = metrics.New(true)
		opts = append(opts, api.WithMetrics(stats))
	}

	bus := publish.NewBus(publish.DefaultBufferSize, a.log)
	var closers []func()
	defer func() {
		// Drain queued changes before sinks go away.
		bus.Stop()
		for _, c := range closers {
			c()
		}
	}()
	opts = append(opts, api.WithPublisher(bus))

	if s.MQTT.Enabled {
		pub, err := publish.NewMQTTPublisher(s.MQTT, a.log, stats)
		if err != nil {
			return err
		}
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = pub.Connect(connectCtx)
		cancel()
		if err != nil {
			// The client keeps retrying in the background.
			a.log.Warn("mqtt broker unavailable at startup", logger.Error(err))
		}
		closers = append(closers, pub.Close)
		bus.Subscribe(pub.Handle)
	}
	if s.Notify.Enabled {
		n, err := publish.NewNotifier(s.Notify, a.log)
		if err != nil {
			return err
		}
		bus.Subscribe(n.Handle)
	}

	timeout := s.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = conf.DefaultShutdownTimeout
	}
	a.log.Info("starting triggerkit",
		logger.String("listen", s.Server.Listen),
		logger.String("database", s.Database.Driver),
		logger.Bool("mqtt", s.MQTT.Enabled))
	return api.New(db, opts...).Start(ctx, s.Server.Listen, timeout)
}

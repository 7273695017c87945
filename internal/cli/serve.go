package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleetdash/internal/alerts"
	"fleetdash/internal/collector"
	"fleetdash/internal/config"
	"fleetdash/internal/dockerctl"
	"fleetdash/internal/executor"
	"fleetdash/internal/hub"
	"fleetdash/internal/probe"
	"fleetdash/internal/server"
	"fleetdash/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitoring dashboard",
	Long: `Start the dashboard server: probe and telemetry loops begin
immediately and the REST/WebSocket API listens on the configured
address.

Examples:
  fleetdash serve
  fleetdash serve --config /etc/fleetdash/fleetdash.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	log := newLogger()

	path, err := config.Find(configFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log.Info("loaded %d hosts from %s", len(cfg.Hosts), path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Docker is optional: without a reachable daemon the container
	// actions return errors but monitoring still runs.
	var docker service.ContainerManager
	if mgr, err := dockerctl.New(log); err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := mgr.Ping(pingCtx); err == nil {
			docker = mgr
		} else {
			log.Warn("docker unavailable, container actions disabled: %v", err)
		}
		cancel()
	} else {
		log.Warn("docker client init failed: %v", err)
	}

	thresholds := alerts.NewThresholdStore(cfg.Thresholds)
	probes := probe.NewService(cfg, log)
	exec := executor.New(cfg, log)
	coll := collector.New(cfg, exec, probes, thresholds.Current, log)
	h := hub.New(cfg.Websocket.HeartbeatInterval, log)

	monitor := service.NewMonitor(service.Options{
		Config:      cfg,
		Runner:      exec,
		Collector:   coll,
		Probes:      probes,
		Thresholds:  thresholds,
		Broadcaster: h,
		Docker:      docker,
		Logger:      log,
	})

	go h.Run(ctx)
	go monitor.Run(ctx)

	srv := server.New(cfg, monitor, h, log)
	return srv.Run(ctx)
}

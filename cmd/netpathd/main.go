package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/jmcardle/netpathd/internal/api"
	"github.com/jmcardle/netpathd/internal/netpath"
	"github.com/jmcardle/netpathd/internal/runtime"
	"github.com/jmcardle/netpathd/pkg/cli"
)

func main() {
	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: Host=%s", cfg.Host)
	log.Infof("Config: Port=%d", cfg.Port)
	log.Infof("Config: LogLevel=%s", cfg.LogLevel)
	log.Infof("Config: Source=%s", cfg.Source)
	log.Infof("Config: PollInterval=%s", cfg.PollInterval)
	log.Infof("Config: MDNS=%v", cfg.MDNS)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitor, err := buildMonitor(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to start network path monitoring")
	}

	apiSvc := api.NewService(cfg.Host, cfg.Port, cfg.MDNS)
	apiSvc.AttachMonitor(monitor)

	super := runtime.NewSupervisor()
	super.Add("netpath", monitor.Run, monitor.Close)
	super.Add("api", func(ctx context.Context) error { return apiSvc.Start(ctx) }, apiSvc.Close)

	if err := super.Start(ctx); err != nil {
		log.WithError(err).Error("Supervisor start failed")
		os.Exit(1)
	}
	if err := super.Wait(ctx); err != nil {
		log.WithError(err).Error("Supervisor wait failed")
		os.Exit(1)
	}
}

// buildMonitor selects the path source per the config and starts
// monitoring, so that source failures surface before the services come
// up. With the auto source, a native facility that cannot be attached
// falls back to polling.
func buildMonitor(cfg *cli.Config) (*netpath.Monitor, error) {
	switch cfg.Source {
	case "native":
		return startMonitor(netpath.NewSource())
	case "poll":
		return startMonitor(netpath.NewPollSource(cfg.PollInterval))
	case "auto":
		monitor, err := startMonitor(netpath.NewSource())
		if err == nil {
			return monitor, nil
		}
		log.WithError(err).Warn("Native path source unavailable, falling back to polling")
		return startMonitor(netpath.NewPollSource(cfg.PollInterval))
	default:
		return nil, fmt.Errorf("unknown source %q (expected auto, native or poll)", cfg.Source)
	}
}

func startMonitor(source netpath.Source) (*netpath.Monitor, error) {
	monitor := netpath.NewMonitor(source)
	if err := monitor.StartMonitoring(); err != nil {
		return nil, err
	}
	return monitor, nil
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

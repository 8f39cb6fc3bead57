// Package main runs one or more federation forwarders described by a config
// file, plus a Prometheus metrics and health endpoint.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/sjohnr/jzmq-sdk-sub001/component"
	"github.com/sjohnr/jzmq-sdk-sub001/config"
	"github.com/sjohnr/jzmq-sdk-sub001/forwarder"
	"github.com/sjohnr/jzmq-sdk-sub001/health"
	"github.com/sjohnr/jzmq-sdk-sub001/metric"
	"github.com/sjohnr/jzmq-sdk-sub001/transport"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "jzf-forwarder"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		cliCfg.usage()
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "forwarders", len(cfg.Forwarders))
		return nil
	}

	logger.Info("Starting forwarders",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger, cliCfg.ShutdownTimeout)
}

// loadConfig loads the config file and applies the command-line overrides.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}
	if cliCfg.MetricsAddr != "" {
		cfg.Metrics.Addr = cliCfg.MetricsAddr
	}
	return cfg, nil
}

// serve starts every forwarder and the metrics server, then blocks until ctx
// is done or the metrics server fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, shutdownTimeout time.Duration) error {
	registry := metric.NewMetricsRegistry()
	if err := registerBuildInfo(registry); err != nil {
		logger.Warn("Build info metric not registered", "error", err)
	}

	forwarders, err := startForwarders(ctx, cfg, transport.NewContext(), registry, logger)
	if err != nil {
		return err
	}
	defer stopForwarders(forwarders, shutdownTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, registry, healthFunc(forwarders))
		g.Go(func() error {
			return server.Start(gctx)
		})
		logger.Info("Metrics server listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logger.Info("Forwarders running", "count", len(forwarders))
	if err := g.Wait(); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	logger.Info("Received shutdown signal")
	return nil
}

func startForwarders(
	ctx context.Context,
	cfg *config.Config,
	tctx *transport.Context,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]*forwarder.Forwarder, error) {
	started := make([]*forwarder.Forwarder, 0, len(cfg.Forwarders))
	for _, fc := range cfg.Forwarders {
		fwd, err := forwarder.New(forwarder.Deps{
			Config:          fc.Forwarder(),
			Context:         tctx,
			MetricsRegistry: registry,
			Logger:          logger,
		})
		if err == nil {
			err = fwd.Init(ctx)
		}
		if err != nil {
			stopForwarders(started, time.Second, logger)
			return nil, fmt.Errorf("start forwarder %s: %w", fc.Name, err)
		}
		started = append(started, fwd)
	}
	return started, nil
}

// stopForwarders destroys forwarders in reverse start order, giving up on
// any that exceed timeout.
func stopForwarders(forwarders []*forwarder.Forwarder, timeout time.Duration, logger *slog.Logger) {
	for i := len(forwarders) - 1; i >= 0; i-- {
		fwd := forwarders[i]
		done := make(chan error, 1)
		go func() {
			done <- fwd.Destroy()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Error("Forwarder stop failed", "forwarder", fwd.Name(), "error", err)
			}
		case <-time.After(timeout):
			logger.Error("Forwarder stop timed out", "forwarder", fwd.Name(), "timeout", timeout)
		}
	}
}

// healthFunc reports the aggregate health of all forwarders. Degraded still
// counts as serving.
func healthFunc(forwarders []*forwarder.Forwarder) metric.HealthFunc {
	components := make([]component.Discoverable, len(forwarders))
	for i, fwd := range forwarders {
		components[i] = fwd
	}
	return func() (bool, any) {
		status := health.FromComponents(appName, components)
		return !status.IsUnhealthy(), status
	}
}

func registerBuildInfo(registry *metric.MetricsRegistry) error {
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "jzf",
		Name:        "build_info",
		Help:        "Build information, always 1",
		ConstLabels: prometheus.Labels{"version": Version, "build_time": BuildTime},
	})
	if err := registry.RegisterGauge(appName, "build_info", info); err != nil {
		return err
	}
	info.Set(1)
	return nil
}

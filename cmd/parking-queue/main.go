package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-queue/internal/config"
	"parking-queue/internal/logging"
	"parking-queue/internal/parking"
	"parking-queue/internal/report"
	"parking-queue/internal/server"
)

var (
	mode     = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port     = flag.String("port", "", "Port for HTTP server (overrides APP_PORT)")
	capacity = flag.Int("capacity", 0, "Initial number of slots (overrides PARKING_CAPACITY)")
)

func main() {
	flag.Parse()

	cfg := config.LoadWithDotEnv()
	if *port != "" {
		cfg.Port = *port
	}
	if *capacity != 0 {
		cfg.Capacity = *capacity
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := parking.NewTelemetryProvider(ctx, parking.TelemetryConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	logging.Init(cfg.ServiceName, cfg.Environment)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, cfg, telemetryProvider, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, telemetryProvider, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, telemetryProvider, sigChan)
	default:
		logging.Error(ctx, "invalid mode", "mode", *mode)
		shutdownTelemetry(telemetryProvider)
		os.Exit(2)
	}
}

func runCLI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "shutting down")
		cancel()
	}()

	queues := parking.NewQueueHolder(telemetryProvider)
	if err := queues.Install(ctx, cfg.Capacity); err != nil {
		logging.Warn(ctx, "starting without a parking queue", "capacity", cfg.Capacity, "error", err)
	}
	parking.NewShell(os.Stdin, os.Stdout, telemetryProvider, queues).Run(ctx)

	shutdownTelemetry(telemetryProvider)
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv, scheduler := startServer(ctx, cfg, telemetryProvider)

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		stopServer(srv, scheduler)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
		stopServer(srv, scheduler)
		cancel()
	}

	<-ctx.Done()
	shutdownTelemetry(telemetryProvider)
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv, scheduler := startServer(ctx, cfg, telemetryProvider)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	// The shell and the HTTP API share one holder, so a create on either
	// side replaces the queue for both.
	cliDone := make(chan bool, 1)
	go func() {
		parking.NewShell(os.Stdin, os.Stdout, telemetryProvider, srv.Queues()).Run(ctx)
		cliDone <- true
	}()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
	case <-ctx.Done():
		logging.Info(ctx, "context cancelled")
	}

	stopServer(srv, scheduler)
	shutdownTelemetry(telemetryProvider)
}

func startServer(ctx context.Context, cfg *config.Config, telemetryProvider *parking.TelemetryProvider) (*server.Server, *report.Scheduler) {
	srv, err := server.NewServer(server.Config{
		Port:        cfg.Port,
		ServiceName: cfg.ServiceName,
		Capacity:    cfg.Capacity,
	}, telemetryProvider)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	reporter := report.NewReporter(func() (report.Source, bool) {
		queue, ok := srv.Queue()
		if !ok {
			return nil, false
		}
		return queue, true
	}, cfg.OverstayThreshold, logging.Logger())

	scheduler, err := report.NewScheduler(cfg.ReportSchedule, reporter)
	if err != nil {
		log.Fatalf("Invalid report schedule %q: %v", cfg.ReportSchedule, err)
	}
	scheduler.Start()

	logging.Info(ctx, "server mode", "port", cfg.Port, "capacity", cfg.Capacity, "report_schedule", cfg.ReportSchedule)
	return srv, scheduler
}

func stopServer(srv *server.Server, scheduler *report.Scheduler) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "report scheduler shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	logging.Info(context.Background(), "shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}

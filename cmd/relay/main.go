package main

import (
	"chat-relay/infrastructure/rest"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay, then blocks until a signal or a fatal server error.
// Deferred cleanups run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = internal.DefaultEnvFile
	}
	config, err := internal.LoadConfig(envFile)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Relay engine
	relay := runtime.NewRelay(logger, config.SinkTimeout)

	socket := ws.NewServer(logger, relay, ws.Options{
		AllowedOrigin:  config.AllowedOrigin,
		PingTimeout:    config.PingTimeout,
		PingInterval:   config.PingInterval,
		WriteTimeout:   config.WriteTimeout,
		MaxMessageSize: config.MaxMessageSize,
		BufferSize:     config.ConnectionBufferSize,
	})
	router := rest.NewRouter(logger, socket, relay, rest.RouterOptions{
		SocketPath:        config.SocketPath,
		AllowedOrigin:     config.AllowedOrigin,
		EnableDebugRoutes: config.EnableDebugRoutes,
	})

	// 3. Listener, bound before supervision so a busy port fails fast
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	onShutdown := func() {
		closed := relay.Shutdown()
		logger.Info("Sessions closed", "count", closed)
	}
	httpWorker := workers.NewHTTPServerWorker(logger, listener, router, config.ShutdownTimeout, onShutdown, errChan)

	var sampler observability.ProcessSampler
	if self, err := observability.NewSelfProcess(); err != nil {
		logger.Warn("Process stats disabled", "error", err)
	} else {
		sampler = self
	}
	monitoring := observability.NewMonitoringManager(logger, relay.Stats, sampler)
	telemetryWorker := workers.NewTelemetryWorker(logger, config.MetricInterval, monitoring)

	// 5. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(httpWorker, telemetryWorker)

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		logger.Info("Starting relay", "address", config.Address(), "path", config.SocketPath, "origin", config.AllowedOrigin)
		sup.Run(ctx)
	}()

	// 6. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
	}

	// 7. Graceful Shutdown
	logger.Info("Shutting down gracefully...")
	sup.Stop()
	<-supervisorDone

	if runErr != nil {
		return exitRuntime, fmt.Errorf("http server error: %w", runErr)
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

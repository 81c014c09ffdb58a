package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rbright/memora-native/internal/bridge"
	"github.com/rbright/memora-native/internal/config"
	"github.com/rbright/memora-native/internal/ipc"
	"github.com/rbright/memora-native/internal/metrics"
	"github.com/rbright/memora-native/internal/rpc"
	"google.golang.org/grpc"
)

const shutdownTimeout = 2 * time.Second

// commandServe owns the bridge socket until ctx is cancelled or a transport fails.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	path, err := socketPath(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}

	host, err := r.newHost(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer host.Wait()

	registry := metrics.NewRegistry()
	dispatcher := bridge.NewDispatcher(logger, cfg.App.ID, host, host)
	invoker := metrics.NewDispatch(registry).Instrument(dispatcher)

	listener, err := ipc.Acquire(ctx, path, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v at %s\n", err, path)
			return exitFailure
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(path)
	}()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	ipcDone := make(chan error, 1)
	go func() {
		ipcDone <- ipc.Serve(serveCtx, listener, bridge.IPCHandler(invoker))
	}()
	ipcStopped := false
	// In-flight socket requests finish before the host is drained.
	defer func() {
		cancel()
		if !ipcStopped {
			<-ipcDone
		}
	}()

	if cfg.GRPC.Listen != "" {
		stop, err := startGRPC(cfg.GRPC.Listen, invoker, logger, errCh)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitFailure
		}
		defer stop()
	}

	if cfg.Metrics.Listen != "" {
		stop, err := startMetrics(cfg.Metrics.Listen, metrics.Handler(registry), errCh)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitFailure
		}
		defer stop()
	}

	logger.Info("bridge serving",
		"socket", path,
		"grpc", cfg.GRPC.Listen,
		"metrics", cfg.Metrics.Listen,
		"app_id", cfg.App.ID,
		"channel", bridge.ChannelName(cfg.App.ID),
		"methods", dispatcher.Methods(),
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	case serveErr = <-ipcDone:
		ipcStopped = true
	}
	cancel()

	if !ipcStopped {
		if err := <-ipcDone; err != nil && serveErr == nil {
			serveErr = err
		}
		ipcStopped = true
	}

	if serveErr != nil {
		logger.Error("bridge transport failed", "error", serveErr.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", serveErr)
		return exitFailure
	}

	logger.Info("bridge stopped", "socket", path)
	return exitOK
}

func startGRPC(addr string, invoker bridge.Invoker, logger *slog.Logger, errCh chan<- error) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen grpc %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	rpc.Register(srv, invoker, logger)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	return func() {
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			srv.Stop()
		}
	}, nil
}

func startMetrics(addr string, handler http.Handler, errCh chan<- error) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

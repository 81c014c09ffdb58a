// Package app wires command parsing, configuration, logging, and the bridge
// transports into the memora-native process.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/memora-native/internal/bridge"
	"github.com/rbright/memora-native/internal/cli"
	"github.com/rbright/memora-native/internal/config"
	"github.com/rbright/memora-native/internal/doctor"
	"github.com/rbright/memora-native/internal/hostos"
	"github.com/rbright/memora-native/internal/ipc"
	"github.com/rbright/memora-native/internal/lockstate"
	"github.com/rbright/memora-native/internal/logging"
	"github.com/rbright/memora-native/internal/version"
)

const (
	exitOK            = 0
	exitFailure       = 1
	exitUsage         = 2
	exitUnimplemented = 3
)

// Host is the live host surface the bridge serves.
type Host interface {
	hostos.Accessor
	hostos.Backgrounder
	Wait()
}

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// NewHost overrides the Hyprland/D-Bus host, mainly for tests.
	NewHost func(config.Config, *slog.Logger) (Host, error)
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("memora-native"))
		return exitUsage
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("memora-native"))
		return exitOK
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return exitOK
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return exitFailure
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return exitFailure
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfg, logger)
	case cli.CommandState:
		return r.forward(ctx, cfg, bridge.MethodGetDeviceState, nil)
	case cli.CommandBackground:
		return r.forward(ctx, cfg, bridge.MethodSendToBackground, nil)
	case cli.CommandCall:
		return r.commandCall(ctx, cfg, parsed.Args)
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, cfgLoaded, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return exitUsage
	}
}

func (r Runner) commandCall(ctx context.Context, cfg config.Config, args []string) int {
	var arguments json.RawMessage
	if len(args) > 1 {
		if !json.Valid([]byte(args[1])) {
			fmt.Fprintf(r.Stderr, "error: arguments must be valid JSON\n")
			return exitUsage
		}
		arguments = json.RawMessage(args[1])
	}
	return r.forward(ctx, cfg, args[0], arguments)
}

// forward sends one method call to the running bridge and prints the result.
func (r Runner) forward(ctx context.Context, cfg config.Config, method string, arguments json.RawMessage) int {
	socketPath, err := socketPath(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}

	result, err := ipc.Call(ctx, socketPath, method, arguments, callTimeout(cfg))
	if err != nil {
		var remote *ipc.RemoteError
		switch {
		case ipc.IsNoListener(err):
			fmt.Fprintln(r.Stderr, "error: no running memora-native bridge")
			return exitFailure
		case errors.As(err, &remote) && remote.Unimplemented():
			fmt.Fprintf(r.Stderr, "error: %v\n", remote)
			return exitUnimplemented
		case errors.As(err, &remote):
			fmt.Fprintf(r.Stderr, "error: %v\n", remote)
			return exitFailure
		default:
			fmt.Fprintf(r.Stderr, "error: forward method %q: %v\n", method, err)
			return exitFailure
		}
	}

	fmt.Fprintln(r.Stdout, strings.TrimSpace(string(result)))
	return exitOK
}

func (r Runner) commandDoctor(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	probes := doctor.Probes{}

	sources, err := lockstate.FromNames(loaded.Config.Host.LockSources)
	if err == nil {
		for _, source := range sources {
			probes.LockSources = append(probes.LockSources, source)
		}
	}

	host, err := r.newHost(loaded.Config, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	dispatcher := bridge.NewDispatcher(logger, loaded.Config.App.ID, host, host)
	probes.DeviceState = dispatcher.DeviceState

	report := doctor.Run(ctx, loaded, probes)
	fmt.Fprintln(r.Stdout, report.String())
	if report.OK() {
		return exitOK
	}
	return exitFailure
}

func (r Runner) newHost(cfg config.Config, logger *slog.Logger) (Host, error) {
	if r.NewHost != nil {
		return r.NewHost(cfg, logger)
	}
	host, err := hostos.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return host, nil
}

func socketPath(cfg config.Config) (string, error) {
	if cfg.IPC.Socket != "" {
		return cfg.IPC.Socket, nil
	}
	return ipc.RuntimeSocketPath()
}

// callTimeout covers the three sequential host queries of getDeviceState.
func callTimeout(cfg config.Config) time.Duration {
	return 3*time.Duration(cfg.Host.QueryTimeoutMS)*time.Millisecond + 500*time.Millisecond
}

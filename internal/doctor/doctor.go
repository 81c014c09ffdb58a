// Package doctor runs readiness diagnostics for the session, compositor, lock
// sources, and a live device-state snapshot.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/memora-native/internal/bridge"
	"github.com/rbright/memora-native/internal/config"
	"github.com/rbright/memora-native/internal/hostos"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Probes are the live host dependencies the doctor exercises.
type Probes struct {
	LockSources []hostos.LockSource
	DeviceState func(context.Context) bridge.DeviceState
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, probes Probes) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q (app.id=%s channel=%s)", cfg.Path, cfg.Config.App.ID, bridge.ChannelName(cfg.Config.App.ID)),
	}}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != "" || cfg.Config.IPC.Socket != ""
	}, "runtime dir available for the bridge socket", "XDG_RUNTIME_DIR is empty and ipc.socket is unset"))

	checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))

	checks = append(checks, checkBinary("hyprctl", "foreground, screen, and background actions require hyprctl"))

	timeout := time.Duration(cfg.Config.Host.QueryTimeoutMS) * time.Millisecond
	for _, source := range probes.LockSources {
		checks = append(checks, checkLockSource(ctx, source, timeout))
	}

	if probes.DeviceState != nil {
		state := probes.DeviceState(ctx)
		checks = append(checks, Check{
			Name: "device.state",
			Pass: true,
			Message: fmt.Sprintf("locked=%t interactive=%t app_on_top=%t",
				state.IsLocked, state.IsInteractive, state.IsAppOnTop),
		})
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkLockSource asks one lock source for the current state within timeout.
func checkLockSource(ctx context.Context, source hostos.LockSource, timeout time.Duration) Check {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := "lock." + source.Name()
	locked, err := source.Locked(queryCtx)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable (locked=%t)", locked)}
}

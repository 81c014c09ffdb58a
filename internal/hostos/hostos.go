// Package hostos answers point-in-time questions about the desktop session and
// performs the host "home" action for the application shell.
//
// Every query degrades to a fixed default instead of failing: not locked, not
// interactive, no foreground owner.
package hostos

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/memora-native/internal/config"
	"github.com/rbright/memora-native/internal/hypr"
	"github.com/rbright/memora-native/internal/lockstate"
	"github.com/rbright/memora-native/internal/logging"
)

// Accessor is the read side of the host: three independent state queries.
type Accessor interface {
	IsDeviceLocked(context.Context) bool
	IsScreenInteractive(context.Context) bool
	CurrentForegroundOwner(context.Context) (string, bool)
}

// Backgrounder demotes the application shell from the foreground. It returns
// before the host has finished acting on the request.
type Backgrounder interface {
	MoveToBackground(context.Context)
}

// LockSource is one service able to report the session lock state.
type LockSource interface {
	Name() string
	Locked(context.Context) (bool, error)
}

// Compositor is the window-manager facing subset used by Host.
type Compositor interface {
	ActiveWindow(context.Context) (hypr.ActiveWindow, error)
	Monitors(context.Context) ([]hypr.Monitor, error)
	Hide(ctx context.Context, workspace string, class string) error
}

// Hyprland is the hyprctl-backed Compositor.
type Hyprland struct{}

func (Hyprland) ActiveWindow(ctx context.Context) (hypr.ActiveWindow, error) {
	return hypr.QueryActiveWindow(ctx)
}

func (Hyprland) Monitors(ctx context.Context) ([]hypr.Monitor, error) {
	return hypr.QueryMonitors(ctx)
}

func (Hyprland) Hide(ctx context.Context, workspace string, class string) error {
	return hypr.HideClass(ctx, workspace, class)
}

// Options wires a Host explicitly.
type Options struct {
	Logger              *slog.Logger
	LockSources         []LockSource
	Compositor          Compositor
	AppID               string
	BackgroundWorkspace string
	QueryTimeout        time.Duration
}

// Host implements Accessor and Backgrounder against the live session.
type Host struct {
	logger     *slog.Logger
	locks      []LockSource
	compositor Compositor
	appID      string
	workspace  string
	timeout    time.Duration

	pending sync.WaitGroup
}

// New builds a Host from runtime configuration using Hyprland and D-Bus.
func New(cfg config.Config, logger *slog.Logger) (*Host, error) {
	sources, err := lockstate.FromNames(cfg.Host.LockSources)
	if err != nil {
		return nil, err
	}
	locks := make([]LockSource, 0, len(sources))
	for _, source := range sources {
		locks = append(locks, source)
	}

	return NewHost(Options{
		Logger:              logger,
		LockSources:         locks,
		Compositor:          Hyprland{},
		AppID:               cfg.App.ID,
		BackgroundWorkspace: cfg.Host.BackgroundWorkspace,
		QueryTimeout:        time.Duration(cfg.Host.QueryTimeoutMS) * time.Millisecond,
	}), nil
}

// NewHost constructs a Host with safe fallbacks for missing options.
func NewHost(opts Options) *Host {
	if opts.Compositor == nil {
		opts.Compositor = Hyprland{}
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 500 * time.Millisecond
	}
	return &Host{
		logger:     logging.OrDiscard(opts.Logger),
		locks:      opts.LockSources,
		compositor: opts.Compositor,
		appID:      opts.AppID,
		workspace:  opts.BackgroundWorkspace,
		timeout:    opts.QueryTimeout,
	}
}

// IsDeviceLocked returns the answer of the first lock source that responds.
func (h *Host) IsDeviceLocked(ctx context.Context) bool {
	for _, source := range h.locks {
		queryCtx, cancel := context.WithTimeout(ctx, h.timeout)
		locked, err := source.Locked(queryCtx)
		cancel()
		if err == nil {
			return locked
		}
		h.logger.Warn("lock source unavailable", "source", source.Name(), "error", err.Error())
	}
	return false
}

// IsScreenInteractive reports whether any enabled output has DPMS on.
func (h *Host) IsScreenInteractive(ctx context.Context) bool {
	queryCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	monitors, err := h.compositor.Monitors(queryCtx)
	if err != nil {
		h.logger.Warn("monitor query failed", "error", err.Error())
		return false
	}
	for _, mon := range monitors {
		if !mon.Disabled && mon.DPMSStatus {
			return true
		}
	}
	return false
}

// CurrentForegroundOwner returns the class of the focused window.
func (h *Host) CurrentForegroundOwner(ctx context.Context) (string, bool) {
	queryCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	window, err := h.compositor.ActiveWindow(queryCtx)
	if err != nil {
		if !errors.Is(err, hypr.ErrNoActiveWindow) {
			h.logger.Warn("active window query failed", "error", err.Error())
		}
		return "", false
	}
	return window.Owner(), true
}

// MoveToBackground hides the application windows on a detached goroutine so
// the caller never waits on the compositor.
func (h *Host) MoveToBackground(ctx context.Context) {
	bgCtx := context.WithoutCancel(ctx)

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()

		hideCtx, cancel := context.WithTimeout(bgCtx, h.timeout)
		defer cancel()
		if err := h.compositor.Hide(hideCtx, h.workspace, h.appID); err != nil {
			h.logger.Warn("move to background failed", "app_id", h.appID, "error", err.Error())
			return
		}
		h.logger.Info("moved to background", "app_id", h.appID, "workspace", h.workspace)
	}()
}

// Wait blocks until every in-flight background request has finished.
func (h *Host) Wait() {
	h.pending.Wait()
}

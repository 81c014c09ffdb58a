// Package bridge routes named method calls from the application shell to
// native host actions and queries.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rbright/memora-native/internal/hostos"
	"github.com/rbright/memora-native/internal/logging"
)

const (
	MethodSendToBackground = "sendToBackground"
	MethodGetDeviceState   = "getDeviceState"
)

// ChannelName is the shell-side channel identity the bridge answers for.
func ChannelName(appID string) string {
	return appID + "/native"
}

// ErrNotImplemented marks a method name outside the routing table.
var ErrNotImplemented = errors.New("method not implemented")

// DeviceState is the getDeviceState result. All fields are always encoded.
type DeviceState struct {
	IsLocked      bool `json:"isLocked"`
	IsInteractive bool `json:"isInteractive"`
	IsAppOnTop    bool `json:"isAppOnTop"`
}

// AsMap renders the state with its wire field names.
func (s DeviceState) AsMap() map[string]any {
	return map[string]any{
		"isLocked":      s.IsLocked,
		"isInteractive": s.IsInteractive,
		"isAppOnTop":    s.IsAppOnTop,
	}
}

// Invoker executes one method call and returns its result value.
type Invoker interface {
	Invoke(ctx context.Context, method string, arguments json.RawMessage) (any, error)
}

type handler func(ctx context.Context, arguments json.RawMessage) (any, error)

// Dispatcher is the closed routing table. It holds no per-call state and is
// safe for concurrent use.
type Dispatcher struct {
	logger     *slog.Logger
	appID      string
	accessor   hostos.Accessor
	background hostos.Backgrounder
	routes     map[string]handler
}

// NewDispatcher builds the routing table for appID.
func NewDispatcher(
	logger *slog.Logger,
	appID string,
	accessor hostos.Accessor,
	background hostos.Backgrounder,
) *Dispatcher {
	d := &Dispatcher{
		logger:     logging.OrDiscard(logger),
		appID:      appID,
		accessor:   accessor,
		background: background,
	}
	d.routes = map[string]handler{
		MethodSendToBackground: d.sendToBackground,
		MethodGetDeviceState:   d.getDeviceState,
	}
	return d
}

// Invoke looks up method by exact, case-sensitive name. Unknown names return
// an error wrapping ErrNotImplemented before any host interaction.
func (d *Dispatcher) Invoke(ctx context.Context, method string, arguments json.RawMessage) (any, error) {
	h, ok := d.routes[method]
	if !ok {
		d.logger.Warn("unimplemented method", "method", method)
		return nil, fmt.Errorf("%w: %q", ErrNotImplemented, method)
	}
	d.logger.Debug("dispatch", "method", method)
	return h(ctx, arguments)
}

// Methods lists the routable method names in sorted order.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether method is routable.
func Known(method string) bool {
	switch method {
	case MethodSendToBackground, MethodGetDeviceState:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) sendToBackground(ctx context.Context, _ json.RawMessage) (any, error) {
	d.background.MoveToBackground(ctx)
	return nil, nil
}

func (d *Dispatcher) getDeviceState(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.DeviceState(ctx), nil
}

// DeviceState queries the three host facilities independently and derives
// IsAppOnTop by comparing the foreground owner with the configured app id.
func (d *Dispatcher) DeviceState(ctx context.Context) DeviceState {
	owner, found := d.accessor.CurrentForegroundOwner(ctx)
	return DeviceState{
		IsLocked:      d.accessor.IsDeviceLocked(ctx),
		IsInteractive: d.accessor.IsScreenInteractive(ctx),
		IsAppOnTop:    found && owner == d.appID,
	}
}

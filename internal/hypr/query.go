package hypr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoActiveWindow is returned when no window currently holds focus.
var ErrNoActiveWindow = errors.New("hyprctl activewindow reported no focused window")

// ActiveWindow describes the focused toplevel.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	PID          int    `json:"pid"`
}

// Owner returns the application identifier owning the window.
func (w ActiveWindow) Owner() string {
	if w.Class != "" {
		return w.Class
	}
	return w.InitialClass
}

// Monitor is one compositor output.
type Monitor struct {
	Name       string `json:"name"`
	Focused    bool   `json:"focused"`
	DPMSStatus bool   `json:"dpmsStatus"`
	Disabled   bool   `json:"disabled"`
}

// QueryActiveWindow fetches the focused window. Hyprland answers `{}` when
// nothing is focused, which surfaces as ErrNoActiveWindow.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	output, err := runHyprctlJSON(ctx, "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(output, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	if window.Address == "" || window.Owner() == "" {
		return ActiveWindow{}, ErrNoActiveWindow
	}
	return window, nil
}

// QueryMonitors lists the compositor outputs.
func QueryMonitors(ctx context.Context) ([]Monitor, error) {
	output, err := runHyprctlJSON(ctx, "monitors")
	if err != nil {
		return nil, err
	}

	var monitors []Monitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return nil, fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	for i := range monitors {
		monitors[i].Name = strings.TrimSpace(monitors[i].Name)
	}
	return monitors, nil
}

// HideClass silently moves every window of class to the named special
// workspace, leaving the owning process running.
func HideClass(ctx context.Context, workspace string, class string) error {
	workspace = strings.TrimSpace(workspace)
	class = strings.TrimSpace(class)
	if workspace == "" || class == "" {
		return fmt.Errorf("hide requires a workspace and a window class")
	}
	target := fmt.Sprintf("special:%s,class:^(%s)$", workspace, regexp.QuoteMeta(class))
	return runHyprctl(ctx, "--quiet", "dispatch", "movetoworkspacesilent", target)
}

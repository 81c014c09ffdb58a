package hostos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbright/memora-native/internal/config"
	"github.com/rbright/memora-native/internal/hypr"
	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	name   string
	locked bool
	err    error
	calls  int
}

func (f *fakeLock) Name() string { return f.name }

func (f *fakeLock) Locked(ctx context.Context) (bool, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return false, errors.New("query without deadline")
	}
	return f.locked, f.err
}

type fakeCompositor struct {
	window    hypr.ActiveWindow
	windowErr error
	monitors  []hypr.Monitor
	monErr    error
	hideErr   error

	mu    sync.Mutex
	hides []string
}

func (f *fakeCompositor) ActiveWindow(context.Context) (hypr.ActiveWindow, error) {
	return f.window, f.windowErr
}

func (f *fakeCompositor) Monitors(context.Context) ([]hypr.Monitor, error) {
	return f.monitors, f.monErr
}

func (f *fakeCompositor) Hide(ctx context.Context, workspace string, class string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.hides = append(f.hides, workspace+"/"+class)
	return f.hideErr
}

func (f *fakeCompositor) hideCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hides...)
}

func TestIsDeviceLockedFirstAnsweringSourceWins(t *testing.T) {
	broken := &fakeLock{name: "logind", err: errors.New("no bus")}
	screensaver := &fakeLock{name: "screensaver", locked: true}
	unused := &fakeLock{name: "extra", locked: false}

	host := NewHost(Options{LockSources: []LockSource{broken, screensaver, unused}, Compositor: &fakeCompositor{}})
	require.True(t, host.IsDeviceLocked(context.Background()))
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, screensaver.calls)
	require.Equal(t, 0, unused.calls)
}

func TestIsDeviceLockedDefaultsToUnlocked(t *testing.T) {
	host := NewHost(Options{
		LockSources: []LockSource{&fakeLock{name: "logind", err: errors.New("no bus")}},
		Compositor:  &fakeCompositor{},
	})
	require.False(t, host.IsDeviceLocked(context.Background()))

	noSources := NewHost(Options{Compositor: &fakeCompositor{}})
	require.False(t, noSources.IsDeviceLocked(context.Background()))
}

func TestIsScreenInteractive(t *testing.T) {
	tests := []struct {
		name     string
		monitors []hypr.Monitor
		err      error
		want     bool
	}{
		{name: "one output on", monitors: []hypr.Monitor{{Name: "eDP-1"}, {Name: "DP-1", DPMSStatus: true}}, want: true},
		{name: "all outputs off", monitors: []hypr.Monitor{{Name: "eDP-1"}}, want: false},
		{name: "disabled output ignored", monitors: []hypr.Monitor{{Name: "DP-1", DPMSStatus: true, Disabled: true}}, want: false},
		{name: "no outputs", monitors: nil, want: false},
		{name: "query failure", err: errors.New("hyprctl missing"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host := NewHost(Options{Compositor: &fakeCompositor{monitors: tc.monitors, monErr: tc.err}})
			require.Equal(t, tc.want, host.IsScreenInteractive(context.Background()))
		})
	}
}

func TestCurrentForegroundOwner(t *testing.T) {
	host := NewHost(Options{Compositor: &fakeCompositor{
		window: hypr.ActiveWindow{Address: "0x1", Class: "com.other.app"},
	}})
	owner, ok := host.CurrentForegroundOwner(context.Background())
	require.True(t, ok)
	require.Equal(t, "com.other.app", owner)

	for _, err := range []error{hypr.ErrNoActiveWindow, errors.New("socket closed")} {
		host = NewHost(Options{Compositor: &fakeCompositor{windowErr: err}})
		owner, ok = host.CurrentForegroundOwner(context.Background())
		require.False(t, ok)
		require.Empty(t, owner)
	}
}

func TestMoveToBackgroundOutlivesCallerContext(t *testing.T) {
	compositor := &fakeCompositor{}
	host := NewHost(Options{
		Compositor:          compositor,
		AppID:               "com.example.memora_application",
		BackgroundWorkspace: "memora",
		QueryTimeout:        time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	host.MoveToBackground(ctx)
	cancel()
	host.Wait()

	require.Equal(t, []string{"memora/com.example.memora_application"}, compositor.hideCalls())
}

func TestMoveToBackgroundSwallowsHostFailure(t *testing.T) {
	compositor := &fakeCompositor{hideErr: errors.New("dispatch refused")}
	host := NewHost(Options{Compositor: compositor, AppID: "app", BackgroundWorkspace: "memora"})

	host.MoveToBackground(context.Background())
	host.Wait()
	require.Len(t, compositor.hideCalls(), 1)
}

func TestNewBuildsLockSourcesFromConfig(t *testing.T) {
	cfg := config.Default()
	host, err := New(cfg, nil)
	require.NoError(t, err)
	require.Len(t, host.locks, 2)
	require.Equal(t, "logind", host.locks[0].Name())
	require.Equal(t, cfg.App.ID, host.appID)
	require.Equal(t, 500*time.Millisecond, host.timeout)

	cfg.Host.LockSources = []string{"gdm"}
	_, err = New(cfg, nil)
	require.Error(t, err)
}

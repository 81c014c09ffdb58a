// Package lockstate reads the session lock state from the freedesktop D-Bus
// services that track it.
package lockstate

import (
	"context"
	"fmt"
	"io"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest    = "org.freedesktop.login1"
	logindSession = dbus.ObjectPath("/org/freedesktop/login1/session/auto")
	logindIface   = "org.freedesktop.login1.Session"

	screenSaverDest  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	screenSaverIface = "org.freedesktop.ScreenSaver"

	propertiesGet = "org.freedesktop.DBus.Properties.Get"
)

// busObject is the subset of dbus.BusObject used by the sources.
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

type opener func(ctx context.Context) (busObject, io.Closer, error)

type query func(ctx context.Context, obj busObject) (bool, error)

// Source answers whether the session is locked through one D-Bus service.
type Source struct {
	name  string
	open  opener
	query query
}

// Name identifies the source in logs and config.
func (s Source) Name() string {
	return s.name
}

// Locked opens a private bus connection, asks the service, and closes it again.
func (s Source) Locked(ctx context.Context) (bool, error) {
	obj, closer, err := s.open(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: connect: %w", s.name, err)
	}
	defer closer.Close()

	locked, err := s.query(ctx, obj)
	if err != nil {
		return false, fmt.Errorf("%s: %w", s.name, err)
	}
	return locked, nil
}

// Logind reads LockedHint of the caller's logind session on the system bus.
func Logind() Source {
	return Source{
		name:  "logind",
		open:  busOpener(dbus.ConnectSystemBus, logindDest, logindSession),
		query: queryLockedHint,
	}
}

// ScreenSaver asks the session bus org.freedesktop.ScreenSaver service.
func ScreenSaver() Source {
	return Source{
		name:  "screensaver",
		open:  busOpener(dbus.ConnectSessionBus, screenSaverDest, screenSaverPath),
		query: queryScreenSaverActive,
	}
}

// FromNames maps configured source names to sources, preserving order.
func FromNames(names []string) ([]Source, error) {
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		switch name {
		case "logind":
			sources = append(sources, Logind())
		case "screensaver":
			sources = append(sources, ScreenSaver())
		default:
			return nil, fmt.Errorf("unknown lock source %q", name)
		}
	}
	return sources, nil
}

func busOpener(
	connect func(...dbus.ConnOption) (*dbus.Conn, error),
	dest string,
	path dbus.ObjectPath,
) opener {
	return func(ctx context.Context) (busObject, io.Closer, error) {
		conn, err := connect(dbus.WithContext(ctx))
		if err != nil {
			return nil, nil, err
		}
		return conn.Object(dest, path), conn, nil
	}
}

func queryLockedHint(ctx context.Context, obj busObject) (bool, error) {
	var hint dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesGet, 0, logindIface, "LockedHint").Store(&hint); err != nil {
		return false, fmt.Errorf("read LockedHint: %w", err)
	}
	locked, ok := hint.Value().(bool)
	if !ok {
		return false, fmt.Errorf("LockedHint has type %s, want bool", hint.Signature())
	}
	return locked, nil
}

func queryScreenSaverActive(ctx context.Context, obj busObject) (bool, error) {
	var active bool
	if err := obj.CallWithContext(ctx, screenSaverIface+".GetActive", 0).Store(&active); err != nil {
		return false, fmt.Errorf("GetActive: %w", err)
	}
	return active, nil
}

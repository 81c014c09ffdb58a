// Package config resolves, parses, validates, and defaults memora-native configuration.
package config

// Config is the fully materialized runtime configuration used by memora-native.
type Config struct {
	App     AppConfig
	IPC     IPCConfig
	GRPC    ListenConfig
	Metrics ListenConfig
	Host    HostConfig
}

// AppConfig identifies the application shell the bridge serves.
type AppConfig struct {
	// ID is compared against the compositor window class to decide foreground ownership.
	ID string
}

// IPCConfig controls the local unix-socket transport.
type IPCConfig struct {
	// Socket overrides the $XDG_RUNTIME_DIR/memora-native.sock default.
	Socket string
}

// ListenConfig holds an optional TCP listen address; empty disables the listener.
type ListenConfig struct {
	Listen string
}

// HostConfig controls how host state is queried and how backgrounding is performed.
type HostConfig struct {
	BackgroundWorkspace string
	QueryTimeoutMS      int
	LockSources         []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	LockSourceLogind      = "logind"
	LockSourceScreenSaver = "screensaver"
)

package config

import (
	"fmt"
	"net"
	"strings"
)

var knownLockSources = map[string]struct{}{
	LockSourceLogind:      {},
	LockSourceScreenSaver: {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.App.ID) == "" {
		return nil, fmt.Errorf("app.id must not be empty")
	}
	if strings.ContainsAny(cfg.App.ID, " \t\r\n,") {
		return nil, fmt.Errorf("app.id must not contain whitespace or commas")
	}

	workspace := strings.TrimSpace(cfg.Host.BackgroundWorkspace)
	if workspace == "" {
		return nil, fmt.Errorf("host.background_workspace must not be empty")
	}
	if strings.ContainsAny(workspace, " \t\r\n,") {
		return nil, fmt.Errorf("host.background_workspace must not contain whitespace or commas")
	}
	if cfg.Host.QueryTimeoutMS <= 0 {
		return nil, fmt.Errorf("host.query_timeout_ms must be > 0")
	}

	seen := make(map[string]struct{}, len(cfg.Host.LockSources))
	for _, source := range cfg.Host.LockSources {
		if _, ok := knownLockSources[source]; !ok {
			return nil, fmt.Errorf("host.lock_sources entry %q must be one of: logind, screensaver", source)
		}
		if _, dup := seen[source]; dup {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("host.lock_sources lists %q more than once", source)})
		}
		seen[source] = struct{}{}
	}
	if len(cfg.Host.LockSources) == 0 {
		warnings = append(warnings, Warning{Message: "host.lock_sources is empty; lock state will always report unlocked"})
	}

	if err := validateListen("grpc.listen", cfg.GRPC.Listen); err != nil {
		return nil, err
	}
	if err := validateListen("metrics.listen", cfg.Metrics.Listen); err != nil {
		return nil, err
	}
	if cfg.GRPC.Listen != "" && cfg.GRPC.Listen == cfg.Metrics.Listen {
		return nil, fmt.Errorf("grpc.listen and metrics.listen must differ")
	}

	return warnings, nil
}

func validateListen(key string, addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s %q is not a host:port address: %w", key, addr, err)
	}
	return nil
}

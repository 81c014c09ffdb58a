package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		App: AppConfig{ID: "com.example.memora_application"},
		Host: HostConfig{
			BackgroundWorkspace: "memora",
			QueryTimeoutMS:      500,
			LockSources:         []string{LockSourceLogind, LockSourceScreenSaver},
		},
	}
}

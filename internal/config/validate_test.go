package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty app id", mutate: func(c *Config) { c.App.ID = " " }, wantErr: "app.id must not be empty"},
		{name: "app id with comma", mutate: func(c *Config) { c.App.ID = "a,b" }, wantErr: "app.id must not contain"},
		{name: "empty workspace", mutate: func(c *Config) { c.Host.BackgroundWorkspace = "" }, wantErr: "background_workspace must not be empty"},
		{name: "workspace with space", mutate: func(c *Config) { c.Host.BackgroundWorkspace = "hidden apps" }, wantErr: "background_workspace must not contain"},
		{name: "zero timeout", mutate: func(c *Config) { c.Host.QueryTimeoutMS = 0 }, wantErr: "query_timeout_ms must be > 0"},
		{name: "unknown lock source", mutate: func(c *Config) { c.Host.LockSources = []string{"gdm"} }, wantErr: "must be one of"},
		{name: "bad grpc listen", mutate: func(c *Config) { c.GRPC.Listen = "7710" }, wantErr: "grpc.listen"},
		{name: "bad metrics listen", mutate: func(c *Config) { c.Metrics.Listen = "localhost" }, wantErr: "metrics.listen"},
		{name: "shared listen", mutate: func(c *Config) {
			c.GRPC.Listen = "127.0.0.1:9100"
			c.Metrics.Listen = "127.0.0.1:9100"
		}, wantErr: "must differ"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnDuplicateLockSource(t *testing.T) {
	cfg := Default()
	cfg.Host.LockSources = []string{LockSourceLogind, LockSourceLogind}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "more than once")
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/memora.jsonc", "serve"})
	require.NoError(t, err)
	require.Equal(t, CommandServe, parsed.Command)
	require.Equal(t, "/tmp/memora.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
	require.Empty(t, parsed.Args)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantArgs []string
		wantHelp bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"state", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--verbose"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"status"}, wantErr: "unknown command"},
		{name: "call without method", args: []string{"call"}, wantErr: "requires a method name"},
		{name: "call with method", args: []string{"call", "unknownMethod"}, wantCmd: CommandCall, wantArgs: []string{"unknownMethod"}},
		{name: "call with arguments", args: []string{"call", "getDeviceState", `{"a":1}`}, wantCmd: CommandCall, wantArgs: []string{"getDeviceState", `{"a":1}`}},
		{name: "call with dashed argument", args: []string{"call", "-x"}, wantCmd: CommandCall, wantArgs: []string{"-x"}},
		{name: "call with too many arguments", args: []string{"call", "a", "b", "c"}, wantErr: "unexpected arguments"},
		{name: "background", args: []string{"background"}, wantCmd: CommandBackground},
		{name: "help command", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantArgs, parsed.Args)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
		})
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	text := HelpText("memora-native")
	for _, cmd := range []string{"serve", "state", "background", "call METHOD", "doctor", "version"} {
		require.Contains(t, text, cmd)
	}
}

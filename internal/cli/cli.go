// Package cli parses the memora-native command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe      Command = "serve"
	CommandState      Command = "state"
	CommandBackground Command = "background"
	CommandCall       Command = "call"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// maxArgs is the number of positional arguments each command accepts.
var maxArgs = map[Command]int{
	CommandServe:      0,
	CommandState:      0,
	CommandBackground: 0,
	CommandCall:       2,
	CommandDoctor:     0,
	CommandVersion:    0,
	CommandHelp:       0,
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	commandSeen := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if commandSeen {
			parsed.Args = append(parsed.Args, arg)
			continue
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := maxArgs[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			commandSeen = true
		}
	}

	if limit := maxArgs[parsed.Command]; len(parsed.Args) > limit {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	}
	if parsed.Command == CommandCall && len(parsed.Args) == 0 {
		return Parsed{}, errors.New("call requires a method name")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  serve                     Own the bridge socket and answer method calls
  state                     Print the device state reported by the running bridge
  background                Ask the running bridge to move the app to the background
  call METHOD [ARGS_JSON]   Send any method call to the running bridge
  doctor                    Run configuration and environment checks
  version                   Print version information
  help                      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/memora-native/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}

package cli

import (
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	FetchLogs *FetchLogsCommand
	ListTypes *ListTypesCommand
	History   *HistoryCommand
	Serve     *ServeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string, out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags
	env := &environment{globals: &globals, version: version, out: out}

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "auditexport"
	parser.LongDescription = "Export Discord guild audit logs to JSON files."

	cmds := &commands{
		FetchLogs: &FetchLogsCommand{env: env},
		ListTypes: &ListTypesCommand{env: env},
		History:   &HistoryCommand{env: env},
		Serve:     &ServeCommand{env: env},
	}

	parser.AddCommand("fetchlogs", "Export a guild's audit log", "Fetch every requested audit log type (all types when none are given) and write the merged entries to a JSON file.", cmds.FetchLogs)
	parser.AddCommand("listtypes", "List audit log event types", "List every known audit log event type with its numeric id.", cmds.ListTypes)
	parser.AddCommand("history", "List past exports", "List past exports recorded in the export ledger, newest first.", cmds.History)
	parser.AddCommand("serve", "Run the HTTP server", "Serve export requests, export history and metrics over HTTP.", cmds.Serve)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	return run(version, args, os.Stdout)
}

func run(version string, args []string, out io.Writer) error {
	// --version is valid without a subcommand.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Fprintf(out, "auditexport %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version, out)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}

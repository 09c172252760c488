package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	EnvFile  string `long:"env-file" description:"Path to a .env file (default: ./.env when present)"`
	LogLevel string `long:"log-level" description:"Override log level (debug, info, warn, error)"`
	JSON     bool   `long:"json" description:"Output in JSON format"`
	Version  bool   `long:"version" description:"Show version and exit"`
}

// FetchLogsCommand exports the audit log of a guild. Positional arguments
// are event type names or numeric ids; none means every type.
type FetchLogsCommand struct {
	Guild string `long:"guild" description:"Guild id (defaults to AUDIT_GUILD_ID)"`

	env *environment
}

// ListTypesCommand prints the known audit log event types.
type ListTypesCommand struct {
	env *environment
}

// HistoryCommand lists past exports from the ledger.
type HistoryCommand struct {
	Guild string `long:"guild" description:"Only exports of this guild"`
	Limit int    `long:"limit" description:"Maximum rows" default:"20"`

	env *environment
}

// ServeCommand runs the HTTP command surface.
type ServeCommand struct {
	Addr string `long:"addr" description:"Listen address (defaults to AUDIT_HTTP_ADDR)"`

	env *environment
}

// environment is shared by every command of one parser.
type environment struct {
	globals *GlobalFlags
	version string
	out     io.Writer
}

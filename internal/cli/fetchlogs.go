package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crimson-sun/auditexport/internal/model"
)

// Execute implements the go-flags Commander interface for FetchLogsCommand.
func (c *FetchLogsCommand) Execute(args []string) error {
	app, err := c.env.openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return c.executeWithApp(context.Background(), app, args)
}

// executeWithApp runs an export against a wired App (for testing).
func (c *FetchLogsCommand) executeWithApp(ctx context.Context, app *App, args []string) error {
	out := c.env.out
	guildID := c.Guild
	if guildID == "" {
		guildID = app.Config.Connector.GuildID
	}
	if guildID == "" {
		return errors.New("no guild given: pass --guild or set AUDIT_GUILD_ID")
	}

	if len(args) > 0 {
		names := make([]string, len(args))
		for i, a := range args {
			names[i] = strings.ToUpper(a)
		}
		fmt.Fprintf(out, "Starting audit log export for types: %s...\n", strings.Join(names, ", "))
	} else {
		fmt.Fprintln(out, "Starting audit log export for all types...")
	}

	ctx, cancel := app.exportContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := app.Exporter.Run(ctx, guildID, args)
	for _, tok := range res.Unknown {
		fmt.Fprintf(out, "Warning: Unknown audit log type %q\n", tok)
	}
	if err != nil {
		fmt.Fprintf(out, "❌ Error fetching logs: %s\n", err)
		return err
	}

	fmt.Fprintf(out, "✅ Exported %d audit log entries to %s (%s)\n",
		len(res.Entries), res.File, elapsedSeconds(time.Since(start)))
	if len(res.Failed) > 0 {
		fmt.Fprintf(out, "Warning: %d type(s) failed and contributed no entries: %s\n",
			len(res.Failed), labels(app, res.Failed))
	}
	if len(res.Truncated) > 0 {
		fmt.Fprintf(out, "Warning: %d type(s) hit the page limit and may be incomplete: %s\n",
			len(res.Truncated), labels(app, res.Truncated))
	}
	return nil
}

// labels renders type ids by name for human output.
func labels(app *App, ids []model.EventType) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = app.Types.Label(id)
	}
	return strings.Join(out, ", ")
}

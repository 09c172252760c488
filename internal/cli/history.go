package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crimson-sun/auditexport/internal/ledger"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	cfg, err := c.env.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Export.LedgerPath == "" {
		return errors.New("export ledger is disabled (AUDIT_LEDGER_PATH is empty)")
	}
	store, err := ledger.Open(cfg.Export.LedgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return c.executeWithStore(context.Background(), store)
}

// executeWithStore lists exports from a provided store (for testing).
func (c *HistoryCommand) executeWithStore(ctx context.Context, store *ledger.Store) error {
	records, err := store.List(ctx, c.Guild, c.Limit)
	if err != nil {
		return fmt.Errorf("list exports: %w", err)
	}

	out := c.env.out
	if c.env.globals.JSON {
		if records == nil {
			records = []ledger.Record{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No exports recorded.")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-20s  %-20s  %8s  %s\n", "ID", "FINISHED", "GUILD", "ENTRIES", "FILE")
	for _, r := range records {
		fmt.Fprintf(out, "%-36s  %-20s  %-20s  %8d  %s\n",
			r.ID, r.FinishedAt.Format("2006-01-02 15:04:05"), r.GuildID, r.TotalEntries, r.FileName)
		if n := len(r.FailedTypes); n > 0 {
			fmt.Fprintf(out, "%38s%d failed type(s): %v\n", "", n, r.FailedTypes)
		}
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crimson-sun/auditexport/internal/eventtype"
)

// listChunkSize is how many types are printed per block.
const listChunkSize = 20

// Execute implements the go-flags Commander interface for ListTypesCommand.
func (c *ListTypesCommand) Execute(args []string) error {
	return c.executeWithTable(eventtype.Default())
}

func (c *ListTypesCommand) executeWithTable(types *eventtype.Table) error {
	all := types.All()
	if c.env.globals.JSON {
		enc := json.NewEncoder(c.env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	for start := 0; start < len(all); start += listChunkSize {
		end := min(start+listChunkSize, len(all))
		lines := make([]string, 0, end-start)
		for _, e := range all[start:end] {
			lines = append(lines, fmt.Sprintf("%s: %d", e.Name, e.ID))
		}
		fmt.Fprintf(c.env.out, "**Available Audit Log Types (%d-%d):**\n%s\n", start+1, end, strings.Join(lines, "\n"))
	}
	return nil
}

package eventtype

import (
	"strconv"
	"strings"

	"github.com/crimson-sun/auditexport/internal/model"
)

// Resolution is the outcome of resolving type tokens.
type Resolution struct {
	IDs     []model.EventType // first-seen order, no duplicates
	Unknown []string          // upper-cased tokens that matched nothing
}

// Resolve maps type tokens to event type ids. An empty token list (blank
// tokens are ignored) selects every known type. Integer tokens are trusted
// as-is and never checked against the table. Unknown names are reported in
// Unknown and do not affect the others.
func (t *Table) Resolve(tokens []string) Resolution {
	var res Resolution
	seen := make(map[model.EventType]bool)
	add := func(id model.EventType) {
		if !seen[id] {
			seen[id] = true
			res.IDs = append(res.IDs, id)
		}
	}

	requested := false
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		requested = true

		if n, err := strconv.Atoi(tok); err == nil {
			add(model.EventType(n))
			continue
		}
		id, ok := t.Lookup(tok)
		if !ok {
			res.Unknown = append(res.Unknown, upper.String(tok))
			continue
		}
		add(id)
	}

	if !requested {
		res.IDs = t.IDs()
	}
	return res
}

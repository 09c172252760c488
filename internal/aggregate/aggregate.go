// Package aggregate merges per-type results into one recency-ordered list.
package aggregate

import (
	"sort"

	"github.com/crimson-sun/auditexport/internal/model"
)

// Aggregate flattens lists and sorts the result newest first. Entries with
// equal timestamps are ordered by id, larger (newer) snowflake first.
func Aggregate(lists ...[]model.AuditEntry) []model.AuditEntry {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]model.AuditEntry, 0, total)
	for _, l := range lists {
		out = append(out, l...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CreatedTimestamp != b.CreatedTimestamp {
			return a.CreatedTimestamp > b.CreatedTimestamp
		}
		return a.ID > b.ID
	})
	return out
}

// Summarize counts entries per type label.
func Summarize(entries []model.AuditEntry) model.Summary {
	summary := make(model.Summary)
	for _, e := range entries {
		summary[e.ActionType]++
	}
	return summary
}

package model

// TypeResult is the outcome of fetching the full history of one event type.
// A failed fetch carries Err and no entries; it is never fatal to the caller.
type TypeResult struct {
	Type      EventType
	Label     string
	Entries   []AuditEntry
	Pages     int
	Truncated bool // page ceiling reached before the source was exhausted
	Err       error
}

// Summary maps a type label to the number of entries carrying it.
type Summary map[string]int

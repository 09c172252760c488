package model

import (
	"encoding/json"

	"github.com/bwmarrin/snowflake"
)

// AuditEntry is one historical audit record as exported. Optional parts are
// pointers: a nil Executor, Target or Reason serializes as null. Ids are
// snowflakes and serialize as decimal strings.
type AuditEntry struct {
	ID               snowflake.ID `json:"id"`
	Type             EventType    `json:"type"`
	ActionType       string       `json:"actionType"` // readable type label, e.g. MEMBER_BAN_ADD
	Executor         *Actor       `json:"executor"`
	Target           *Target      `json:"target"`
	Reason           *string      `json:"reason"`
	Changes          []Change     `json:"changes"`
	CreatedTimestamp int64        `json:"createdTimestamp"` // epoch millis
	CreatedAt        string       `json:"createdAt"`        // ISO-8601, UTC
}

// Actor identifies who performed an audited action.
type Actor struct {
	ID  snowflake.ID `json:"id"`
	Tag string       `json:"tag"`
}

// Target identifies what an audited action was applied to.
type Target struct {
	ID   snowflake.ID `json:"id"`
	Type string       `json:"type"` // target kind: User, Channel, Role, ...
	Tag  *string      `json:"tag"`
}

// Change is an opaque before/after descriptor attached to an entry.
type Change struct {
	Key string          `json:"key"`
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new,omitempty"`
}

// TimeLayout formats instants as ISO-8601 UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

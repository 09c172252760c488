package model

import "strconv"

// EventType identifies one category of audited action (Discord's action_type).
type EventType int

// Valid reports whether t can be sent to the audit source. Action types start at 1.
func (t EventType) Valid() bool {
	return t > 0
}

func (t EventType) String() string {
	return strconv.Itoa(int(t))
}

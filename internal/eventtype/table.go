// Package eventtype holds the static table of audit event types and resolves
// user-supplied type tokens against it.
package eventtype

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/auditexport/internal/model"
)

//go:embed types.yaml
var defaultData []byte

// Entry is one row of the event type table.
type Entry struct {
	Name   string          `yaml:"name" json:"name"`
	ID     model.EventType `yaml:"id" json:"id"`
	Target string          `yaml:"target" json:"target"` // kind of object the action applies to
}

// Table is an immutable bidirectional name <-> id mapping.
type Table struct {
	entries []Entry // ascending by ID
	byKey   map[string]model.EventType
	byID    map[model.EventType]Entry
}

var upper = cases.Upper(language.Und)

// Parse builds a Table from YAML data: a list of {name, id, target} rows.
// Names and ids must be unique and ids positive.
func Parse(data []byte) (*Table, error) {
	var rows []Entry
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("eventtype: parse table: %w", err)
	}

	t := &Table{
		byKey: make(map[string]model.EventType, len(rows)),
		byID:  make(map[model.EventType]Entry, len(rows)),
	}
	for _, row := range rows {
		if row.Name == "" {
			return nil, fmt.Errorf("eventtype: row with id %d has no name", row.ID)
		}
		if !row.ID.Valid() {
			return nil, fmt.Errorf("eventtype: %s has invalid id %d", row.Name, row.ID)
		}
		row.Name = upper.String(row.Name)
		key := normalize(row.Name)
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("eventtype: duplicate name %s", row.Name)
		}
		if _, dup := t.byID[row.ID]; dup {
			return nil, fmt.Errorf("eventtype: duplicate id %d", row.ID)
		}
		t.byKey[key] = row.ID
		t.byID[row.ID] = row
		t.entries = append(t.entries, row)
	}

	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].ID < t.entries[j].ID
	})
	return t, nil
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Parse(defaultData)
})

// Default returns the built-in Discord audit log event table.
func Default() *Table {
	t, err := loadDefault()
	if err != nil {
		panic(err) // embedded data is malformed
	}
	return t
}

// Lookup finds the id for a symbolic name. Matching is case-insensitive and
// ignores word separators, so MEMBER_ROLE_UPDATE, MemberRoleUpdate and
// member-role-update are equivalent.
func (t *Table) Lookup(name string) (model.EventType, bool) {
	id, ok := t.byKey[normalize(name)]
	return id, ok
}

// Name returns the canonical name of a known id.
func (t *Table) Name(id model.EventType) (string, bool) {
	e, ok := t.byID[id]
	return e.Name, ok
}

// TargetKind returns the kind of object actions of this type apply to.
func (t *Table) TargetKind(id model.EventType) (string, bool) {
	e, ok := t.byID[id]
	return e.Target, ok
}

// Label is the readable label for id: its name, or the decimal id when unknown.
func (t *Table) Label(id model.EventType) string {
	if name, ok := t.Name(id); ok {
		return name
	}
	return id.String()
}

// All returns every entry in ascending id order.
func (t *Table) All() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// IDs returns every known id in ascending order.
func (t *Table) IDs() []model.EventType {
	ids := make([]model.EventType, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.ID
	}
	return ids
}

func normalize(name string) string {
	s := upper.String(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

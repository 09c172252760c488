package eventtype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crimson-sun/auditexport/internal/model"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tab, err := Parse([]byte(`
- {name: GUILD_UPDATE, id: 1, target: Guild}
- {name: CHANNEL_CREATE, id: 10, target: Channel}
- {name: MEMBER_BAN_ADD, id: 22, target: User}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tab
}

func TestResolve_EmptySelectsAll(t *testing.T) {
	tab := testTable(t)

	res := tab.Resolve(nil)
	assert.Equal(t, []model.EventType{1, 10, 22}, res.IDs)
	assert.Empty(t, res.Unknown)

	res = tab.Resolve([]string{"", "  "})
	assert.Equal(t, []model.EventType{1, 10, 22}, res.IDs)
}

func TestResolve_Names(t *testing.T) {
	tab := testTable(t)

	res := tab.Resolve([]string{"member_ban_add", "CHANNEL_CREATE"})
	assert.Equal(t, []model.EventType{22, 10}, res.IDs)
	assert.Empty(t, res.Unknown)
}

func TestResolve_UnknownReportedNotFatal(t *testing.T) {
	tab := testTable(t)

	res := tab.Resolve([]string{"BOGUS_TYPE"})
	assert.Empty(t, res.IDs)
	assert.Equal(t, []string{"BOGUS_TYPE"}, res.Unknown)

	res = tab.Resolve([]string{"nope", "GUILD_UPDATE"})
	assert.Equal(t, []model.EventType{1}, res.IDs)
	assert.Equal(t, []string{"NOPE"}, res.Unknown)
}

func TestResolve_NumericTokensPassThrough(t *testing.T) {
	tab := testTable(t)

	res := tab.Resolve([]string{"25"})
	assert.Equal(t, []model.EventType{25}, res.IDs, "unknown numeric id must be kept")
	assert.Empty(t, res.Unknown)

	res = tab.Resolve([]string{"22", "-4"})
	assert.Equal(t, []model.EventType{22, -4}, res.IDs)
}

func TestResolve_Deduplicates(t *testing.T) {
	tab := testTable(t)

	res := tab.Resolve([]string{"22", "MEMBER_BAN_ADD", "memberbanadd"})
	assert.Equal(t, []model.EventType{22}, res.IDs)
}

func TestResolve_CountsAddUp(t *testing.T) {
	tab := testTable(t)
	tokens := []string{"GUILD_UPDATE", "X", "10", "Y", "CHANNEL_CREATE"}

	res := tab.Resolve(tokens)
	// CHANNEL_CREATE collapses onto 10.
	assert.Equal(t, 4, len(res.IDs)+len(res.Unknown))
	assert.Equal(t, []string{"X", "Y"}, res.Unknown)
}

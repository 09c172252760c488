// Package connectortest provides an in-memory connector.Source for tests.
package connectortest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/crimson-sun/auditexport/internal/connector"
	"github.com/crimson-sun/auditexport/internal/model"
)

// Memory serves audit history held in memory, newest first per type, with
// the same before-cursor semantics as the real API.
type Memory struct {
	// Delay is slept (context-aware) before each page is served.
	Delay time.Duration

	mu          sync.Mutex
	history     map[model.EventType][]model.AuditEntry
	failures    map[model.EventType]failure
	calls       []connector.PageQuery
	inflight    int
	maxInflight int
}

type failure struct {
	page int // 1-based page on which to fail
	err  error
}

// NewMemory creates an empty Memory source.
func NewMemory() *Memory {
	return &Memory{
		history:  make(map[model.EventType][]model.AuditEntry),
		failures: make(map[model.EventType]failure),
	}
}

// Entry builds a minimal entry of type typ created at ts (unix millis).
func Entry(id snowflake.ID, typ model.EventType, ts int64) model.AuditEntry {
	return model.AuditEntry{
		ID:               id,
		Type:             typ,
		ActionType:       typ.String(),
		Changes:          []model.Change{},
		CreatedTimestamp: ts,
		CreatedAt:        time.UnixMilli(ts).UTC().Format(model.TimeLayout),
	}
}

// Add stores entries under their own type, keeping each type newest first.
func (m *Memory) Add(entries ...model.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	touched := make(map[model.EventType]bool)
	for _, e := range entries {
		m.history[e.Type] = append(m.history[e.Type], e)
		touched[e.Type] = true
	}
	for t := range touched {
		list := m.history[t]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].CreatedTimestamp != list[j].CreatedTimestamp {
				return list[i].CreatedTimestamp > list[j].CreatedTimestamp
			}
			return list[i].ID > list[j].ID
		})
	}
}

// Generate adds n entries of type typ with descending timestamps starting
// at newest. Ids descend with the timestamps and are unique per type.
func (m *Memory) Generate(typ model.EventType, n int, newest int64) {
	entries := make([]model.AuditEntry, n)
	for i := range entries {
		id := snowflake.ID(int64(typ)*1_000_000 + int64(n-i))
		entries[i] = Entry(id, typ, newest-int64(i))
	}
	m.Add(entries...)
}

// FailOn makes requests for typ fail with err once it has been asked for
// page pages (1-based, counted over the life of the source).
func (m *Memory) FailOn(typ model.EventType, page int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[typ] = failure{page: page, err: err}
}

// Calls returns every query served so far, in arrival order.
func (m *Memory) Calls() []connector.PageQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]connector.PageQuery, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the queries served for one type.
func (m *Memory) CallsFor(typ model.EventType) []connector.PageQuery {
	var out []connector.PageQuery
	for _, q := range m.Calls() {
		if q.Type == typ {
			out = append(out, q)
		}
	}
	return out
}

// MaxInFlight is the highest number of concurrent FetchPage calls observed.
func (m *Memory) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInflight
}

// FetchPage implements connector.Source.
func (m *Memory) FetchPage(ctx context.Context, _ string, q connector.PageQuery) ([]model.AuditEntry, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	m.inflight++
	if m.inflight > m.maxInflight {
		m.maxInflight = m.inflight
	}
	page := m.countLocked(q.Type)
	f, failing := m.failures[q.Type]
	list := m.history[q.Type]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	if failing && page >= f.page {
		return nil, f.err
	}

	start := 0
	if q.Before != 0 {
		start = len(list)
		for i, e := range list {
			if e.ID == q.Before {
				start = i + 1
				break
			}
		}
	}
	end := len(list)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	out := make([]model.AuditEntry, end-start)
	copy(out, list[start:end])
	return out, nil
}

// countLocked counts queries served for typ; m.mu must be held.
func (m *Memory) countLocked(typ model.EventType) int {
	n := 0
	for _, q := range m.calls {
		if q.Type == typ {
			n++
		}
	}
	return n
}

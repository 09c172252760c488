// Package scheduler runs per-type fetches in consecutive bounded batches.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/crimson-sun/auditexport/internal/model"
	"github.com/crimson-sun/auditexport/internal/observability"
)

// DefaultConcurrency is the batch size used when none is configured.
const DefaultConcurrency = 5

// FetchFunc fetches the full history of one type. It must not panic and
// reports failures through TypeResult.Err.
type FetchFunc func(ctx context.Context, id model.EventType) model.TypeResult

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver sets the progress observer.
func WithObserver(o observability.Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// Scheduler bounds how many fetches run at once.
type Scheduler struct {
	limit    int
	observer observability.Observer
}

// New creates a Scheduler running at most limit fetches at a time.
// A non-positive limit selects DefaultConcurrency.
func New(limit int, opts ...Option) *Scheduler {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	s := &Scheduler{limit: limit, observer: observability.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the batch size.
func (s *Scheduler) Limit() int { return s.limit }

// Partition splits ids, in order, into consecutive groups of size; the last
// group may be smaller. A non-positive size selects DefaultConcurrency.
func Partition(ids []model.EventType, size int) [][]model.EventType {
	if size <= 0 {
		size = DefaultConcurrency
	}
	var batches [][]model.EventType
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batch := make([]model.EventType, end-start)
		copy(batch, ids[start:end])
		batches = append(batches, batch)
	}
	return batches
}

// Run fetches every id. Batches run strictly one after another; the fetches
// of a batch run concurrently and all settle before the next batch starts.
// Results come back in batch order, then completion order within a batch.
// A cancelled ctx stops further batches from starting.
func (s *Scheduler) Run(ctx context.Context, ids []model.EventType, fetch FetchFunc) []model.TypeResult {
	results := make([]model.TypeResult, 0, len(ids))
	for i, batch := range Partition(ids, s.limit) {
		if ctx.Err() != nil {
			break
		}
		n := i + 1
		s.observer.BatchStarted(n, batch)
		start := time.Now()

		done := make(chan model.TypeResult, len(batch))
		var wg sync.WaitGroup
		for _, id := range batch {
			wg.Add(1)
			go func(id model.EventType) {
				defer wg.Done()
				done <- fetch(ctx, id)
			}(id)
		}
		wg.Wait()
		close(done)

		batchResults := make([]model.TypeResult, 0, len(batch))
		for r := range done {
			batchResults = append(batchResults, r)
		}
		s.observer.BatchFinished(n, batchResults, time.Since(start))
		results = append(results, batchResults...)
	}
	return results
}

// Entries flattens the entries of every non-empty result, preserving result order.
func Entries(results []model.TypeResult) []model.AuditEntry {
	total := 0
	for _, r := range results {
		total += len(r.Entries)
	}
	out := make([]model.AuditEntry, 0, total)
	for _, r := range results {
		if len(r.Entries) > 0 {
			out = append(out, r.Entries...)
		}
	}
	return out
}

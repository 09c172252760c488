// Package observability defines the instrumentation points of an export and
// the sinks that receive them.
package observability

import (
	"time"

	"github.com/crimson-sun/auditexport/internal/model"
)

// Observer receives progress notifications from the fetcher and scheduler.
// Implementations must be safe for concurrent use: fetches within a batch
// report from separate goroutines.
type Observer interface {
	BatchStarted(batch int, types []model.EventType)
	BatchFinished(batch int, results []model.TypeResult, elapsed time.Duration)
	FetchStarted(t model.EventType)
	PageFetched(t model.EventType, entries int)
	TypeFinished(r model.TypeResult, elapsed time.Duration)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) BatchStarted(int, []model.EventType)                  {}
func (Nop) BatchFinished(int, []model.TypeResult, time.Duration) {}
func (Nop) FetchStarted(model.EventType)                         {}
func (Nop) PageFetched(model.EventType, int)                     {}
func (Nop) TypeFinished(model.TypeResult, time.Duration)         {}

// Multi fans notifications out to several observers, in order.
type Multi []Observer

// NewMulti returns an Observer that notifies every non-nil observer.
func NewMulti(observers ...Observer) Multi {
	var m Multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m Multi) BatchStarted(batch int, types []model.EventType) {
	for _, o := range m {
		o.BatchStarted(batch, types)
	}
}

func (m Multi) BatchFinished(batch int, results []model.TypeResult, elapsed time.Duration) {
	for _, o := range m {
		o.BatchFinished(batch, results, elapsed)
	}
}

func (m Multi) FetchStarted(t model.EventType) {
	for _, o := range m {
		o.FetchStarted(t)
	}
}

func (m Multi) PageFetched(t model.EventType, entries int) {
	for _, o := range m {
		o.PageFetched(t, entries)
	}
}

func (m Multi) TypeFinished(r model.TypeResult, elapsed time.Duration) {
	for _, o := range m {
		o.TypeFinished(r, elapsed)
	}
}

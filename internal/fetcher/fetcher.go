// Package fetcher reads the complete history of one audit event type by
// following "before" cursors until the source is exhausted.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/crimson-sun/auditexport/internal/connector"
	"github.com/crimson-sun/auditexport/internal/model"
	"github.com/crimson-sun/auditexport/internal/observability"
)

const (
	// DefaultPageSize is the largest page the audit log API serves.
	DefaultPageSize = connector.MaxPageSize

	// MaxPagesPerType bounds the page loop of a single type.
	MaxPagesPerType = 1000
)

// Labeler names event types for reporting.
type Labeler interface {
	Label(id model.EventType) string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPageSize sets the number of entries requested per page, capped at
// connector.MaxPageSize. A larger page would come back short and end the
// loop after the first request.
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = min(n, connector.MaxPageSize)
		}
	}
}

// WithMaxPages sets the page ceiling per type. Default: MaxPagesPerType.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxPages = n
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(o observability.Observer) Option {
	return func(f *Fetcher) {
		if o != nil {
			f.observer = o
		}
	}
}

// Fetcher paginates one event type at a time. It holds no per-fetch state,
// so a single Fetcher serves concurrent FetchType calls.
type Fetcher struct {
	source   connector.Source
	labels   Labeler
	pageSize int
	maxPages int
	observer observability.Observer
}

// New creates a Fetcher reading from src.
func New(src connector.Source, labels Labeler, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:   src,
		labels:   labels,
		pageSize: DefaultPageSize,
		maxPages: MaxPagesPerType,
		observer: observability.Nop{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PageSize returns the configured page size.
func (f *Fetcher) PageSize() int { return f.pageSize }

// FetchType returns every entry of type id, newest first, in source order.
// It never fails: an invalid id yields an empty result, and any source error
// discards what was gathered and is reported through Err with no entries.
func (f *Fetcher) FetchType(ctx context.Context, guildID string, id model.EventType) model.TypeResult {
	res := model.TypeResult{Type: id, Label: id.String()}
	if f.labels != nil {
		res.Label = f.labels.Label(id)
	}
	if !id.Valid() {
		return res
	}

	start := time.Now()
	f.observer.FetchStarted(id)

	var entries []model.AuditEntry
	var cursor snowflake.ID
	for {
		page, err := f.source.FetchPage(ctx, guildID, connector.PageQuery{
			Limit:  f.pageSize,
			Type:   id,
			Before: cursor,
		})
		if err != nil {
			res.Err = fmt.Errorf("fetch %s page %d: %w", res.Label, res.Pages+1, err)
			res.Entries = nil
			break
		}
		res.Pages++
		f.observer.PageFetched(id, len(page))

		if len(page) == 0 {
			break
		}
		entries = append(entries, page...)
		cursor = page[len(page)-1].ID

		if len(page) < f.pageSize {
			break
		}
		if res.Pages >= f.maxPages {
			res.Truncated = true
			break
		}
	}

	if res.Err == nil {
		res.Entries = entries
	}
	f.observer.TypeFinished(res, time.Since(start))
	return res
}

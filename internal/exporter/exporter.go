// Package exporter runs a complete audit-log export: resolve type tokens,
// fetch every type with bounded concurrency, merge newest first, and write
// the aggregate to disk.
package exporter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/auditexport/internal/aggregate"
	"github.com/crimson-sun/auditexport/internal/eventtype"
	"github.com/crimson-sun/auditexport/internal/ledger"
	"github.com/crimson-sun/auditexport/internal/model"
	"github.com/crimson-sun/auditexport/internal/observability"
	"github.com/crimson-sun/auditexport/internal/output/export"
	"github.com/crimson-sun/auditexport/internal/scheduler"
)

// TypeFetcher paginates a single event type.
type TypeFetcher interface {
	FetchType(ctx context.Context, guildID string, id model.EventType) model.TypeResult
}

// ArtifactWriter persists aggregated entries and returns the file path.
type ArtifactWriter interface {
	Write(entries []model.AuditEntry, summary model.Summary, guildID string) (string, error)
}

// Ledger records completed exports.
type Ledger interface {
	Record(ctx context.Context, rec ledger.Record) (string, error)
}

// Report is the in-memory outcome of fetching a guild's audit log.
type Report struct {
	Entries   []model.AuditEntry
	Requested []model.EventType
	Unknown   []string
	Truncated []model.EventType
	Failed    []model.EventType
	Summary   model.Summary
	Results   []model.TypeResult
}

// Result is the outcome of a completed export.
type Result struct {
	Report
	File     string
	ExportID string
	Elapsed  time.Duration
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithConcurrency sets how many types are fetched at once.
func WithConcurrency(n int) Option {
	return func(e *Exporter) { e.concurrency = n }
}

// WithObserver sets the batch observer handed to the scheduler.
func WithObserver(o observability.Observer) Option {
	return func(e *Exporter) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLedger records every completed export in l.
func WithLedger(l Ledger) Option {
	return func(e *Exporter) { e.ledger = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// Exporter ties the resolver, fetcher, scheduler and writer together.
type Exporter struct {
	types       *eventtype.Table
	fetcher     TypeFetcher
	writer      ArtifactWriter
	concurrency int
	observer    observability.Observer
	ledger      Ledger
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an Exporter. A nil types table selects eventtype.Default().
func New(types *eventtype.Table, f TypeFetcher, w ArtifactWriter, opts ...Option) *Exporter {
	if types == nil {
		types = eventtype.Default()
	}
	e := &Exporter{
		types:       types,
		fetcher:     f,
		writer:      w,
		concurrency: scheduler.DefaultConcurrency,
		observer:    observability.Nop{},
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Types returns the event type table used for resolution.
func (e *Exporter) Types() *eventtype.Table { return e.types }

// FetchAllAuditLogs resolves tokens and fetches every resulting type for
// guildID. Per-type failures degrade to empty contributions and are listed
// in Report.Failed; they never fail the call.
func (e *Exporter) FetchAllAuditLogs(ctx context.Context, guildID string, tokens []string) Report {
	res := e.types.Resolve(tokens)
	if len(res.Unknown) > 0 {
		e.logger.Warn("unknown audit log types", zap.Strings("tokens", res.Unknown))
	}

	sched := scheduler.New(e.concurrency, scheduler.WithObserver(e.observer))
	results := sched.Run(ctx, res.IDs, func(ctx context.Context, id model.EventType) model.TypeResult {
		return e.fetcher.FetchType(ctx, guildID, id)
	})

	report := Report{
		Requested: res.IDs,
		Unknown:   res.Unknown,
		Results:   results,
	}
	for _, r := range results {
		if r.Err != nil {
			report.Failed = append(report.Failed, r.Type)
		}
		if r.Truncated {
			report.Truncated = append(report.Truncated, r.Type)
		}
	}
	report.Entries = aggregate.Aggregate(scheduler.Entries(results))
	report.Summary = aggregate.Summarize(report.Entries)
	return report
}

// SaveLogsToFile writes entries, with their per-label summary, for guildID
// and returns the file path.
func (e *Exporter) SaveLogsToFile(entries []model.AuditEntry, guildID string) (string, error) {
	return e.writer.Write(entries, aggregate.Summarize(entries), guildID)
}

// Run performs a full export. An unusable guild id is rejected before any
// page is requested. Otherwise only a cancelled ctx or a write failure
// returns an error; a ledger failure is logged since the file is already
// on disk.
func (e *Exporter) Run(ctx context.Context, guildID string, tokens []string) (Result, error) {
	if err := export.ValidateGuildID(guildID); err != nil {
		return Result{}, err
	}
	started := e.now()
	report := e.FetchAllAuditLogs(ctx, guildID, tokens)
	if err := ctx.Err(); err != nil {
		return Result{Report: report}, fmt.Errorf("export cancelled: %w", err)
	}

	file, err := e.writer.Write(report.Entries, report.Summary, guildID)
	if err != nil {
		return Result{Report: report}, fmt.Errorf("write export: %w", err)
	}
	finished := e.now()

	result := Result{Report: report, File: file, Elapsed: finished.Sub(started)}
	e.logger.Info("export complete",
		zap.String("guild", guildID),
		zap.String("file", file),
		zap.Int("entries", len(report.Entries)),
		zap.Int("types", len(report.Requested)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("truncated", len(report.Truncated)),
		zap.Duration("elapsed", result.Elapsed),
	)

	if e.ledger != nil {
		id, err := e.ledger.Record(ctx, ledger.Record{
			GuildID:        guildID,
			FileName:       file,
			TotalEntries:   len(report.Entries),
			RequestedTypes: report.Requested,
			UnknownTokens:  report.Unknown,
			TruncatedTypes: report.Truncated,
			FailedTypes:    report.Failed,
			StartedAt:      started,
			FinishedAt:     finished,
		})
		if err != nil {
			e.logger.Error("record export in ledger", zap.String("file", file), zap.Error(err))
		} else {
			result.ExportID = id
		}
	}
	return result, nil
}

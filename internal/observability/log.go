package observability

import (
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/auditexport/internal/model"
)

// LogObserver writes progress as structured log lines.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver returns an Observer logging to logger.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (l *LogObserver) BatchStarted(batch int, types []model.EventType) {
	l.logger.Info("processing batch",
		zap.Int("batch", batch),
		zap.Int("types", len(types)))
}

func (l *LogObserver) BatchFinished(batch int, results []model.TypeResult, elapsed time.Duration) {
	entries := 0
	for _, r := range results {
		entries += len(r.Entries)
	}
	l.logger.Info("batch finished",
		zap.Int("batch", batch),
		zap.Int("entries", entries),
		zap.Duration("elapsed", elapsed))
}

func (l *LogObserver) FetchStarted(t model.EventType) {
	l.logger.Debug("fetching type", zap.Int("type", int(t)))
}

func (l *LogObserver) PageFetched(t model.EventType, entries int) {
	l.logger.Debug("page fetched", zap.Int("type", int(t)), zap.Int("entries", entries))
}

func (l *LogObserver) TypeFinished(r model.TypeResult, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("type", r.Label),
		zap.Int("type_id", int(r.Type)),
		zap.Int("entries", len(r.Entries)),
		zap.Int("pages", r.Pages),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case r.Err != nil:
		l.logger.Error("fetch failed", append(fields, zap.Error(r.Err))...)
	case r.Truncated:
		l.logger.Warn("page ceiling reached, history truncated", fields...)
	default:
		l.logger.Info("fetched type", fields...)
	}
}

// Package export writes an aggregated audit history to a JSON artifact.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crimson-sun/auditexport/internal/model"
)

const defaultBufSize = 64 * 1024 // 64KB

// Artifact is the on-disk document of one export.
type Artifact struct {
	ExportDate   string             `json:"exportDate"`
	GuildID      string             `json:"guildId"`
	TotalEntries int                `json:"totalEntries"`
	Summary      model.Summary      `json:"summary"`
	Entries      []model.AuditEntry `json:"entries"`
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the source of the export instant. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(w *Writer) { w.bufSize = bytes }
}

// Writer persists artifacts under one directory. Every artifact gets its own
// timestamp-qualified file, so concurrent writers need no coordination.
type Writer struct {
	dir     string
	now     func() time.Time
	bufSize int
}

// New creates a Writer storing artifacts in dir. The directory is created on
// first write.
func New(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:     dir,
		now:     time.Now,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the destination directory.
func (w *Writer) Dir() string { return w.dir }

// FileName derives the artifact name for guildID exported at instant at.
func FileName(guildID string, at time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format(model.TimeLayout))
	return "audit_logs_" + guildID + "_" + ts + ".json"
}

// Write serializes entries and summary as a new artifact and returns its file
// name (relative to Dir). Any filesystem failure is returned; nothing is retried.
func (w *Writer) Write(entries []model.AuditEntry, summary model.Summary, guildID string) (string, error) {
	if err := ValidateGuildID(guildID); err != nil {
		return "", err
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	if summary == nil {
		summary = model.Summary{}
	}

	at := w.now()
	name := FileName(guildID, at)
	doc := Artifact{
		ExportDate:   at.UTC().Format(model.TimeLayout),
		GuildID:      guildID,
		TotalEntries: len(entries),
		Summary:      summary,
		Entries:      entries,
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("export: create directory %s: %w", w.dir, err)
	}

	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"
	if err := w.writeFile(tmp, doc); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("export: rename %s: %w", path, err)
	}
	return name, nil
}

func (w *Writer) writeFile(path string, doc Artifact) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", path, err)
	}

	bw := bufio.NewWriterSize(f, w.bufSize)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("export: encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("export: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("export: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close: %w", err)
	}
	return nil
}

// Read parses an artifact from path.
func Read(path string) (Artifact, error) {
	var doc Artifact
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("export: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("export: parse %s: %w", path, err)
	}
	return doc, nil
}

// ErrInvalidGuildID marks a guild id that cannot name an export file.
var ErrInvalidGuildID = errors.New("invalid guild id")

// ValidateGuildID rejects ids that are empty or would escape the output
// directory once embedded in a file name.
func ValidateGuildID(id string) error {
	if id == "" {
		return fmt.Errorf("export: %w: missing", ErrInvalidGuildID)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("export: %w %q", ErrInvalidGuildID, id)
	}
	return nil
}

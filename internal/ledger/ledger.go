// Package ledger keeps a history of completed exports in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/auditexport/internal/model"
)

// ErrNotFound is returned by Get for an unknown export id.
var ErrNotFound = errors.New("ledger: export not found")

// Record describes one completed export.
type Record struct {
	ID             string            `json:"id"`
	GuildID        string            `json:"guildId"`
	FileName       string            `json:"fileName"`
	TotalEntries   int               `json:"totalEntries"`
	RequestedTypes []model.EventType `json:"requestedTypes"`
	UnknownTokens  []string          `json:"unknownTokens"`
	TruncatedTypes []model.EventType `json:"truncatedTypes"`
	FailedTypes    []model.EventType `json:"failedTypes"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt"`
}

// Store is a SQLite-backed export history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path and migrates it.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("ledger: create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-opened database, applying pending migrations.
func New(db *sql.DB) (*Store, error) {
	if err := NewMigrationRunner(db).Run(); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores rec, assigning a new id when rec.ID is empty. It returns the
// stored id.
func (s *Store) Record(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	requested, err := encodeList(rec.RequestedTypes)
	if err != nil {
		return "", err
	}
	unknown, err := encodeList(rec.UnknownTokens)
	if err != nil {
		return "", err
	}
	truncated, err := encodeList(rec.TruncatedTypes)
	if err != nil {
		return "", err
	}
	failed, err := encodeList(rec.FailedTypes)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exports (id, guild_id, file_name, total_entries, requested_types,
			unknown_tokens, truncated_types, failed_types, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.GuildID, rec.FileName, rec.TotalEntries, requested, unknown,
		truncated, failed, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("ledger: insert: %w", err)
	}
	return rec.ID, nil
}

const selectColumns = `id, guild_id, file_name, total_entries, requested_types,
	unknown_tokens, truncated_types, failed_types, started_at, finished_at`

// Get returns the export with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM exports WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns the most recent exports, newest first. An empty guildID lists
// every guild; a non-positive limit defaults to 20.
func (s *Store) List(ctx context.Context, guildID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + selectColumns + ` FROM exports`
	args := []any{}
	if guildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, guildID)
	}
	query += ` ORDER BY finished_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec                                   Record
		requested, unknown, truncated, failed string
		startedMillis, finishedMillis         int64
	)
	if err := sc.Scan(&rec.ID, &rec.GuildID, &rec.FileName, &rec.TotalEntries,
		&requested, &unknown, &truncated, &failed, &startedMillis, &finishedMillis); err != nil {
		return Record{}, err
	}
	for _, f := range []struct {
		raw  string
		dest any
	}{
		{requested, &rec.RequestedTypes},
		{unknown, &rec.UnknownTokens},
		{truncated, &rec.TruncatedTypes},
		{failed, &rec.FailedTypes},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return Record{}, fmt.Errorf("ledger: decode export %s: %w", rec.ID, err)
		}
	}
	rec.StartedAt = time.UnixMilli(startedMillis).UTC()
	rec.FinishedAt = time.UnixMilli(finishedMillis).UTC()
	return rec, nil
}

func encodeList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("ledger: encode: %w", err)
	}
	return string(b), nil
}

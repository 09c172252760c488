package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/auditexport/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(guild string, finished time.Time) Record {
	return Record{
		GuildID:        guild,
		FileName:       "logs/audit_logs_" + guild + ".json",
		TotalEntries:   42,
		RequestedTypes: []model.EventType{1, 20, 22},
		UnknownTokens:  []string{"NOT_A_TYPE"},
		TruncatedTypes: []model.EventType{20},
		FailedTypes:    []model.EventType{22},
		StartedAt:      finished.Add(-3 * time.Second),
		FinishedAt:     finished,
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	finished := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.Record(ctx, sampleRecord("123", finished))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "123", got.GuildID)
	assert.Equal(t, 42, got.TotalEntries)
	assert.Equal(t, []model.EventType{1, 20, 22}, got.RequestedTypes)
	assert.Equal(t, []string{"NOT_A_TYPE"}, got.UnknownTokens)
	assert.Equal(t, []model.EventType{20}, got.TruncatedTypes)
	assert.Equal(t, []model.EventType{22}, got.FailedTypes)
	assert.True(t, finished.Equal(got.FinishedAt))
	assert.True(t, finished.Add(-3*time.Second).Equal(got.StartedAt))
}

func TestRecord_KeepsExplicitID(t *testing.T) {
	s := openTestStore(t)
	rec := sampleRecord("1", time.Now())
	rec.ID = "fixed-id"

	id, err := s.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestRecord_NilListsStoredEmpty(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Record(context.Background(), Record{GuildID: "1", FileName: "f.json"})
	require.NoError(t, err)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, got.RequestedTypes)
	assert.Empty(t, got.RequestedTypes)
	assert.Empty(t, got.UnknownTokens)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, guild := range []string{"a", "b", "a", "a"} {
		rec := sampleRecord(guild, base.Add(time.Duration(i)*time.Hour))
		rec.TotalEntries = i
		_, err := s.Record(ctx, rec)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 3, all[0].TotalEntries)
	assert.Equal(t, 0, all[3].TotalEntries)

	onlyA, err := s.List(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, 3, onlyA[0].TotalEntries)
	assert.Equal(t, 2, onlyA[1].TotalEntries)

	none, err := s.List(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpen_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "exports.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), sampleRecord("1", time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	list, err := reopened.List(context.Background(), "1", 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/auditexport/internal/connector"
	"github.com/crimson-sun/auditexport/internal/connector/connectortest"
	"github.com/crimson-sun/auditexport/internal/eventtype"
	"github.com/crimson-sun/auditexport/internal/ledger"
	"github.com/crimson-sun/auditexport/internal/output/export"
)

// testSource backs the "memory" provider; each test installs a fresh one.
var testSource *connectortest.Memory

func init() {
	connector.Register("memory", func(connector.Config, *eventtype.Table) (connector.Source, error) {
		if testSource == nil {
			return nil, errors.New("no test source installed")
		}
		return testSource, nil
	})
}

// setupEnv points configuration at a temp dir and the in-memory provider.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	testSource = connectortest.NewMemory()
	t.Cleanup(func() { testSource = nil })

	t.Setenv("AUDIT_PROVIDER", "memory")
	t.Setenv("AUDIT_GUILD_ID", "42")
	t.Setenv("AUDIT_OUTPUT_DIR", filepath.Join(dir, "logs"))
	t.Setenv("AUDIT_LEDGER_PATH", filepath.Join(dir, "logs", "exports.db"))
	t.Setenv("AUDIT_LOG_LEVEL", "error")
	t.Setenv("AUDIT_EXPORT_TIMEOUT", "")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := run("test", args, &buf)
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, "--version")
	assert.NoError(t, err)
	assert.Equal(t, "auditexport test", strings.TrimSpace(out))
}

func TestSubcommandsRegistered(t *testing.T) {
	parser, _, cmds := buildParser("test", &bytes.Buffer{})
	for _, name := range []string{"fetchlogs", "listtypes", "history", "serve"} {
		assert.NotNil(t, parser.Find(name), name)
	}
	assert.NotNil(t, cmds.FetchLogs)
	assert.NotNil(t, cmds.Serve)
}

func TestHistoryFlagsParsed(t *testing.T) {
	parser, _, cmds := buildParser("test", &bytes.Buffer{})
	// Parsing runs the command; an empty ledger path makes it fail fast.
	t.Setenv("AUDIT_LEDGER_PATH", "")
	chdir(t, t.TempDir())
	_, err := parser.ParseArgs([]string{"history", "--guild", "7", "--limit", "3"})
	require.Error(t, err)
	assert.Equal(t, "7", cmds.History.Guild)
	assert.Equal(t, 3, cmds.History.Limit)
}

func TestListTypes(t *testing.T) {
	out, err := runCLI(t, "listtypes")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "**Available Audit Log Types (1-20):**\nGUILD_UPDATE: 1\n"))
	total := len(eventtype.Default().All())
	assert.Equal(t, (total+listChunkSize-1)/listChunkSize, strings.Count(out, "**Available Audit Log Types"))
	assert.Equal(t, total, strings.Count(out, ": "))
}

func TestListTypes_JSON(t *testing.T) {
	out, err := runCLI(t, "--json", "listtypes")
	require.NoError(t, err)

	var entries []eventtype.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, len(eventtype.Default().All()))
}

func TestFetchLogs_AllTypes(t *testing.T) {
	dir := setupEnv(t)
	testSource.Add(
		connectortest.Entry(1, 1, 300),
		connectortest.Entry(2, 1, 200),
		connectortest.Entry(4, 20, 250),
	)

	out, err := runCLI(t, "fetchlogs")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Starting audit log export for all types...", lines[0])
	assert.Regexp(t, `^✅ Exported 3 audit log entries to audit_logs_42_\S+\.json \(\d+\.\d\ds\)$`, lines[1])

	files, err := filepath.Glob(filepath.Join(dir, "logs", "audit_logs_42_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	doc, err := export.Read(files[0])
	require.NoError(t, err)
	require.Equal(t, 3, doc.TotalEntries)
	assert.EqualValues(t, 1, doc.Entries[0].ID)
	assert.EqualValues(t, 4, doc.Entries[1].ID)
	assert.EqualValues(t, 2, doc.Entries[2].ID)
}

func TestFetchLogs_TypesAndUnknown(t *testing.T) {
	setupEnv(t)
	testSource.Generate(20, 2, 100)

	out, err := runCLI(t, "fetchlogs", "--guild", "99", "member_kick", "bogus_type")
	require.NoError(t, err)

	assert.Contains(t, out, "Starting audit log export for types: MEMBER_KICK, BOGUS_TYPE...\n")
	assert.Contains(t, out, `Warning: Unknown audit log type "BOGUS_TYPE"`)
	assert.Contains(t, out, "✅ Exported 2 audit log entries to audit_logs_99_")
}

func TestFetchLogs_FailedTypeReported(t *testing.T) {
	setupEnv(t)
	testSource.FailOn(999, 1, errors.New("invalid form body"))

	out, err := runCLI(t, "fetchlogs", "999")
	require.NoError(t, err)

	assert.Contains(t, out, "✅ Exported 0 audit log entries")
	assert.Contains(t, out, "Warning: 1 type(s) failed and contributed no entries: 999")
}

func TestFetchLogs_NoGuild(t *testing.T) {
	setupEnv(t)
	t.Setenv("AUDIT_GUILD_ID", "")

	_, err := runCLI(t, "fetchlogs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--guild")
}

func TestFetchLogs_WriteErrorReported(t *testing.T) {
	dir := setupEnv(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	t.Setenv("AUDIT_OUTPUT_DIR", blocker)

	out, err := runCLI(t, "fetchlogs", "1")
	require.Error(t, err)
	assert.Contains(t, out, "❌ Error fetching logs: write export")
}

func TestFetchLogs_EnvFile(t *testing.T) {
	setupEnv(t)
	os.Unsetenv("AUDIT_GUILD_ID")
	envFile := filepath.Join(t.TempDir(), "export.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUDIT_GUILD_ID=555\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("AUDIT_GUILD_ID") })

	out, err := runCLI(t, "--env-file", envFile, "fetchlogs", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "audit_logs_555_")
}

func TestFetchLogs_UnknownProvider(t *testing.T) {
	setupEnv(t)
	t.Setenv("AUDIT_PROVIDER", "carrier-pigeon")

	_, err := runCLI(t, "fetchlogs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown connector provider: carrier-pigeon")
}

func TestHistory(t *testing.T) {
	setupEnv(t)
	testSource.Generate(1, 4, 100)

	_, err := runCLI(t, "fetchlogs", "1")
	require.NoError(t, err)
	_, err = runCLI(t, "fetchlogs", "--guild", "7", "1")
	require.NoError(t, err)

	out, err := runCLI(t, "history", "--guild", "42")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "42")
	assert.Contains(t, lines[1], "audit_logs_42_")

	out, err = runCLI(t, "--json", "history")
	require.NoError(t, err)
	var records []ledger.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)
}

func TestHistory_Empty(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "No exports recorded.\n", out)
}

func TestHistory_LedgerDisabled(t *testing.T) {
	setupEnv(t)
	t.Setenv("AUDIT_LEDGER_PATH", "")

	_, err := runCLI(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestServe_StopsWhenContextDone(t *testing.T) {
	setupEnv(t)
	env := &environment{globals: &GlobalFlags{}, version: "test", out: &bytes.Buffer{}}
	app, err := env.openApp()
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := &ServeCommand{Addr: "127.0.0.1:0", env: env}
	assert.NoError(t, cmd.executeWithApp(ctx, app))
}

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

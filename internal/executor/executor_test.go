package executor_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/psqltmpl/internal/executor"
	"github.com/roach88/psqltmpl/internal/settings"
	"github.com/roach88/psqltmpl/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completeSettings() settings.Settings {
	return settings.Settings{
		Host:     "localhost",
		Port:     5432,
		Database: "app",
		User:     "app",
		Password: "secret",
	}
}

func newExecutor(t *testing.T, s settings.Settings, d executor.Dialer) *executor.Executor {
	t.Helper()
	e, err := executor.New(s, executor.WithDialer(d), executor.WithLogger(quietLogger()))
	require.NoError(t, err)
	return e
}

func TestExecuteSuccess(t *testing.T) {
	d := testutil.NewRecordingDialer()
	e := newExecutor(t, completeSettings(), d)

	outcome := e.Execute(context.Background(), "DELETE FROM t WHERE id=1;")

	assert.True(t, outcome.OK)
	assert.Equal(t, executor.KindNone, outcome.Kind)
	assert.Empty(t, outcome.Diagnostic())
	assert.NoError(t, outcome.Err)
	assert.Equal(t, []string{"DELETE FROM t WHERE id=1;"}, d.Committed())
	assert.Equal(t, 1, d.Dials())
	assert.Equal(t, 0, d.OpenConns())
	assert.Equal(t, 0, d.Rollbacks())
}

func TestExecuteOpensConnectionPerCall(t *testing.T) {
	d := testutil.NewRecordingDialer()
	e := newExecutor(t, completeSettings(), d)

	for i := 0; i < 3; i++ {
		require.True(t, e.Execute(context.Background(), "SELECT 1;").OK)
	}

	assert.Equal(t, 3, d.Dials())
	assert.Equal(t, 0, d.OpenConns())
	for _, s := range d.DialedWith() {
		assert.Equal(t, "secret", s.Password)
	}
}

func TestExecuteMissingPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"host":"h","port":5432,"database":"d","user":"u"}`), 0600))
	s, err := settings.Load(path)
	require.NoError(t, err)

	d := testutil.NewRecordingDialer()
	e := newExecutor(t, s, d)

	outcome := e.Execute(context.Background(), "DELETE FROM t;")

	assert.False(t, outcome.OK)
	assert.Equal(t, executor.KindMissingSetting, outcome.Kind)
	assert.Equal(t, settings.KeyPassword, outcome.MissingKey())
	assert.Equal(t, "missing connection setting: password", outcome.Diagnostic())
	assert.True(t, executor.IsMissingSetting(outcome.Err))
	assert.Equal(t, 0, d.Dials())
	assert.Empty(t, d.Attempted())
}

func TestExecuteMissingSettingFromDialer(t *testing.T) {
	d := testutil.NewRecordingDialer().FailDial(&executor.MissingSettingError{Key: settings.KeyHost})
	e := newExecutor(t, completeSettings(), d)

	outcome := e.Execute(context.Background(), "SELECT 1;")

	assert.False(t, outcome.OK)
	assert.Equal(t, executor.KindMissingSetting, outcome.Kind)
	assert.Equal(t, settings.KeyHost, outcome.MissingKey())
	assert.Equal(t, "missing connection setting: host", outcome.Diagnostic())
}

func TestExecuteStatementFailure(t *testing.T) {
	d := testutil.NewRecordingDialer().FailOn("bad", nil)
	e := newExecutor(t, completeSettings(), d)

	outcome := e.Execute(context.Background(), "DELETE FROM t WHERE id=bad;")

	assert.False(t, outcome.OK)
	assert.Equal(t, executor.KindExecution, outcome.Kind)
	assert.Equal(t, "DELETE FROM t WHERE id=bad;", outcome.SQL)
	assert.True(t, errors.Is(outcome.Err, testutil.ErrInjected))
	assert.Equal(t,
		"psql execution failed\nerror: injected failure\nsql: DELETE FROM t WHERE id=bad;",
		outcome.Diagnostic())

	var execErr *executor.ExecutionError
	require.True(t, errors.As(outcome.Err, &execErr))
	assert.Equal(t, "DELETE FROM t WHERE id=bad;", execErr.SQL)

	assert.Empty(t, d.Committed())
	assert.Equal(t, 0, d.OpenConns())
	assert.Equal(t, 1, d.Rollbacks())
}

func TestExecuteDialFailure(t *testing.T) {
	d := testutil.NewRecordingDialer().FailDial(errors.New("connection refused"))
	e := newExecutor(t, completeSettings(), d)

	outcome := e.Execute(context.Background(), "SELECT 1;")

	assert.Equal(t, executor.KindExecution, outcome.Kind)
	assert.Contains(t, outcome.Diagnostic(), "connect: connection refused")
	assert.Contains(t, outcome.Diagnostic(), "sql: SELECT 1;")
	assert.Empty(t, d.Attempted())
}

func TestNewUnknownDriver(t *testing.T) {
	s := completeSettings()
	s.Driver = "oracle"

	_, err := executor.New(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported driver "oracle"`)
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "OK", executor.KindNone.String())
	assert.Equal(t, "MISSING_SETTING", executor.KindMissingSetting.String())
	assert.Equal(t, "EXECUTION_FAILED", executor.KindExecution.String())
	assert.Equal(t, "FailureKind(9)", executor.FailureKind(9).String())
}

func sqliteSettings(t *testing.T) settings.Settings {
	t.Helper()
	return settings.Settings{
		Host:     "local",
		Port:     1,
		Database: filepath.Join(t.TempDir(), "target.db"),
		User:     "u",
		Password: "p",
		Driver:   settings.DriverSQLite,
	}
}

func TestExecuteSQLiteCommits(t *testing.T) {
	s := sqliteSettings(t)
	e, err := executor.New(s, executor.WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx := context.Background()
	require.True(t, e.Execute(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);").OK)
	require.True(t, e.Execute(ctx, "INSERT INTO t (id, name) VALUES (1, 'a'); INSERT INTO t (id, name) VALUES (2, 'b');").OK)

	db, err := sql.Open("sqlite3", s.Database)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestExecuteSQLiteFailure(t *testing.T) {
	s := sqliteSettings(t)
	e, err := executor.New(s, executor.WithLogger(quietLogger()))
	require.NoError(t, err)

	outcome := e.Execute(context.Background(), "DELETE FROM missing_table;")

	assert.Equal(t, executor.KindExecution, outcome.Kind)
	assert.Contains(t, outcome.Diagnostic(), "no such table: missing_table")
	assert.Contains(t, outcome.Diagnostic(), "sql: DELETE FROM missing_table;")
}

func TestExecuteSQLiteEmptyDatabase(t *testing.T) {
	s := sqliteSettings(t)
	s.Database = ""
	e, err := executor.New(s, executor.WithLogger(quietLogger()))
	require.NoError(t, err)

	outcome := e.Execute(context.Background(), "SELECT 1;")
	assert.Equal(t, executor.KindExecution, outcome.Kind)
	assert.Contains(t, outcome.Diagnostic(), "requires the database setting")
}

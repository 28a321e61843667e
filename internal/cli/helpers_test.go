package cli

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// sqliteFixture creates a SQLite database with a single table t(id) and a
// connection settings file pointing at it.
func sqliteFixture(t *testing.T, dir string) (connPath, dbPath string) {
	t.Helper()
	dbPath = filepath.Join(dir, "target.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	connPath = writeFile(t, dir, "connection.json", fmt.Sprintf(`{
    "host": "localhost",
    "port": 5432,
    "database": %q,
    "user": "test",
    "password": "test",
    "driver": "sqlite3"
}
`, dbPath))
	return connPath, dbPath
}

// tableIDs returns the ids in t, ascending.
func tableIDs(t *testing.T, dbPath string) []int {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT id FROM t ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

// executeCommand runs cmd with args and returns stdout and stderr.
func executeCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

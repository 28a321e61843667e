package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("journal file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		j.Close()
	}

	j, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer j.Close()

	for _, table := range []string{"runs", "statements"} {
		var name string
		err := j.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	j := createTestJournal(t)

	version, err := j.schemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schemaVersion() failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, expected %d", version, currentSchemaVersion)
	}

	var name string
	err = j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_statements_scenario_hash'",
	).Scan(&name)
	if err != nil {
		t.Errorf("scenario hash index missing: %v", err)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	var mode string
	if err := j.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, expected wal", mode)
	}

	var fk int
	if err := j.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, expected 1", fk)
	}
}

func TestClose_NilDB(t *testing.T) {
	j := &Journal{}
	if err := j.Close(); err != nil {
		t.Errorf("Close() on empty journal returned %v", err)
	}
}

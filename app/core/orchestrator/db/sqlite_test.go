package db

import (
	"testing"
)

func TestNewSQLiteDBCreatesSchema(t *testing.T) {
	database, err := NewSQLiteDB(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer database.Close()

	for _, table := range []string{"tasks", "exchanges", "schema_meta"} {
		var name string
		err := database.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	first, err := NewSQLiteDB(dir)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteDB(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	var version string
	if err := second.Conn().QueryRow(`SELECT value FROM schema_meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != "2" {
		t.Fatalf("expected schema version 2, got %s", version)
	}
}

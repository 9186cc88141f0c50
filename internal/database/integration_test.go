package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"familypoints/migrations"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDatabaseIntegration runs the embedded migrations against a fresh SQLite file
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	tables := []string{"families", "users", "sessions", "action_templates", "assigned_actions", "action_suggestions", "invitations"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// A second run must be a no-op.
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	files, _ := migrations.FS.ReadDir("sqlite")
	if count != len(files) {
		t.Errorf("migrations recorded = %d, want %d", count, len(files))
	}
}

func TestRunMigrationsCustomFS(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"sqlite/002_second.sql": {Data: []byte("INSERT INTO things (label) VALUES ('b');")},
		"sqlite/001_first.sql": {Data: []byte(`
-- things table
CREATE TABLE things (id INTEGER PRIMARY KEY, label TEXT NOT NULL);
INSERT INTO things (label) VALUES ('a');
`)},
		"postgres/001_first.sql": {Data: []byte("this is not sqlite")},
	}

	if err := db.RunMigrations(ctx, fsys); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	var labels string
	if err := db.QueryRowContext(ctx, "SELECT group_concat(label, '') FROM (SELECT label FROM things ORDER BY id)").Scan(&labels); err != nil {
		t.Fatalf("Failed to read things: %v", err)
	}
	if labels != "ab" {
		t.Errorf("labels = %q, want %q (files applied in order)", labels, "ab")
	}
}

func TestRunMigrationsFailureRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"sqlite/001_broken.sql": {Data: []byte("CREATE TABLE broken (id INTEGER PRIMARY KEY);\nNOT VALID SQL;")},
	}

	if err := db.RunMigrations(ctx, fsys); err == nil {
		t.Fatal("RunMigrations() expected error for invalid SQL")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", "001_broken.sql").Scan(&count); err != nil {
		t.Fatalf("Failed to query migrations: %v", err)
	}
	if count != 0 {
		t.Error("failed migration must not be recorded")
	}
}

// TestDatabaseTransactions tests commit and rollback through WithTx
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	var familyID int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		id, err := tx.ExecReturningID(ctx, "INSERT INTO families (name) VALUES (?)", "Committed")
		familyID = id
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() commit error = %v", err)
	}
	if familyID == 0 {
		t.Fatal("ExecReturningID returned 0")
	}

	errBoom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO families (name) VALUES (?)", "Rolled back"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTx() error = %v, want %v", err, errBoom)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		t.Fatalf("Failed to count families: %v", err)
	}
	if count != 1 {
		t.Errorf("families = %d, want 1 after rollback", count)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	_, err := db.ExecContext(ctx, "INSERT INTO action_templates (family_id, name, points) VALUES (?, ?, ?)", 999, "Orphan", 1.0)
	if err == nil {
		t.Error("expected foreign key violation for unknown family")
	}
}

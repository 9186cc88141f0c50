package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM families WHERE id = ?",
			expected: "SELECT * FROM families WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM action_templates WHERE id = ? AND family_id = ?",
			expected: "SELECT * FROM action_templates WHERE id = $1 AND family_id = $2",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO invitations (family_id, email, role) VALUES (?, ?, ?)",
			expected: "INSERT INTO invitations (family_id, email, role) VALUES ($1, $2, $3)",
		},
		{
			name:     "PostgreSQL skips quoted question marks",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM action_templates WHERE name = 'why?' AND family_id = ?",
			expected: "SELECT * FROM action_templates WHERE name = 'why?' AND family_id = $1",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE assigned_actions SET completed = ? WHERE id = ?",
			expected: "UPDATE assigned_actions SET completed = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		config   DialectConfig
		expected string
	}{
		{
			name:     "SQLite plain path",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "./familypoints.db"},
			expected: "./familypoints.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		},
		{
			name:     "SQLite path with query",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "file:test.db?cache=shared"},
			expected: "file:test.db?cache=shared&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		},
		{
			name:     "PostgreSQL URL passthrough",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "postgres://u:p@localhost/points?sslmode=disable"},
			expected: "postgres://u:p@localhost/points?sslmode=disable",
		},
		{
			name:     "MySQL adds parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "u:p@tcp(localhost:3306)/points"},
			expected: "u:p@tcp(localhost:3306)/points?parseTime=true&loc=UTC",
		},
		{
			name:     "MySQL keeps explicit parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "u:p@tcp(localhost:3306)/points?parseTime=true"},
			expected: "u:p@tcp(localhost:3306)/points?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.expected {
				t.Errorf("DSN() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `
-- families
CREATE TABLE families (id INTEGER PRIMARY KEY);

CREATE INDEX idx ON families(id);
;
`
	got := splitStatements(content)
	if len(got) != 2 {
		t.Fatalf("splitStatements() returned %d statements, want 2: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE families (id INTEGER PRIMARY KEY)" {
		t.Errorf("first statement = %q", got[0])
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"SQLite unique", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"SQLite primary key", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"SQLite foreign key", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"PostgreSQL wrapped unique", NewPostgresDialect(), fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"PostgreSQL not null", NewPostgresDialect(), &pq.Error{Code: "23502"}, false},
		{"MySQL duplicate entry", NewMySQLDialect(), &mysql.MySQLError{Number: 1062}, true},
		{"MySQL other", NewMySQLDialect(), &mysql.MySQLError{Number: 1452}, false},
		{"plain error", NewPostgresDialect(), errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResetSequenceQuery(t *testing.T) {
	if got := NewSQLiteDialect().ResetSequenceQuery("users"); got != "" {
		t.Errorf("SQLite ResetSequenceQuery() = %q, want empty", got)
	}
	if got := NewMySQLDialect().ResetSequenceQuery("users"); got != "" {
		t.Errorf("MySQL ResetSequenceQuery() = %q, want empty", got)
	}
	want := "SELECT setval(pg_get_serial_sequence('users', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM users"
	if got := NewPostgresDialect().ResetSequenceQuery("users"); got != want {
		t.Errorf("PostgreSQL ResetSequenceQuery() = %q, want %q", got, want)
	}
}

package modules

import (
	"strings"
	"testing"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/migration"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

func parseFile(t *testing.T, sql string) migration.File {
	t.Helper()
	return migration.ParseContent("test.sql", sql, sqlparse.DialectPostgres)
}

func TestDefaultsRegistersAllModules(t *testing.T) {
	mods := Defaults()
	if len(mods) != 5 {
		t.Fatalf("Defaults() = %d modules, want 5", len(mods))
	}

	seen := map[string]bool{}
	for _, m := range mods {
		seen[m.Metadata().ID] = true
	}
	for _, id := range []string{"transaction-wrapper", "lock-timeout", "drop-table-safeguard", "concurrent-index", "batched-delete"} {
		if !seen[id] {
			t.Errorf("missing module %s", id)
		}
	}
}

func TestTransactionWrapper(t *testing.T) {
	m := NewTransactionWrapper()

	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"plain ddl applies", "CREATE TABLE users (id INT);", true},
		{"existing transaction skipped", "BEGIN;\nCREATE TABLE users (id INT);\nCOMMIT;", false},
		{"concurrently cannot be wrapped", "CREATE INDEX CONCURRENTLY idx ON users(id);", false},
		{"empty migration skipped", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Detect(parseFile(t, tt.sql))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Detect = %v, want %v", got, tt.want)
			}
		})
	}

	file := parseFile(t, "CREATE TABLE users (id INT)")
	out, err := m.Apply(file.Up, file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "BEGIN;\n") || !strings.HasSuffix(out, "COMMIT;\n") {
		t.Errorf("Apply output not wrapped:\n%s", out)
	}
	if !strings.Contains(out, "CREATE TABLE users (id INT);") {
		t.Errorf("Apply dropped the statement terminator:\n%s", out)
	}
}

func TestLockTimeout(t *testing.T) {
	m := NewLockTimeout(0)

	locking := parseFile(t, "ALTER TABLE users ADD COLUMN age INT;")
	if ok, _ := m.Detect(locking); !ok {
		t.Error("lock-taking DDL should be detected")
	}

	already := parseFile(t, "SET lock_timeout = '3s';\nALTER TABLE users ADD COLUMN age INT;")
	if ok, _ := m.Detect(already); ok {
		t.Error("migration already setting lock_timeout should be skipped")
	}

	noLock := parseFile(t, "INSERT INTO settings (k) VALUES ('a');")
	if ok, _ := m.Detect(noLock); ok {
		t.Error("plain DML takes no DDL lock")
	}

	out, err := m.Apply(locking.Up, locking)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "SET lock_timeout = '5s';\n") {
		t.Errorf("Apply = %q, want default timeout prepended", out)
	}
}

func TestDropTableSafeguard(t *testing.T) {
	m := NewDropTableSafeguard()
	m.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	file := parseFile(t, "DROP TABLE audit_log;\nDROP TABLE IF EXISTS sessions;")
	if ok, _ := m.Detect(file); !ok {
		t.Fatal("DROP TABLE should be detected")
	}
	if !m.Metadata().RequiresConfirmation {
		t.Error("dropping tables needs explicit confirmation")
	}

	out, err := m.Apply(file.Up, file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "CREATE TABLE audit_log_backup_20240601120000 AS SELECT * FROM audit_log;") {
		t.Errorf("missing backup for audit_log:\n%s", out)
	}
	if !strings.Contains(out, "CREATE TABLE sessions_backup_20240601120000 AS SELECT * FROM sessions;") {
		t.Errorf("missing backup for sessions:\n%s", out)
	}
	// Backups must precede their drops.
	if strings.Index(out, "audit_log_backup") > strings.Index(out, "DROP TABLE audit_log") {
		t.Errorf("backup placed after the drop:\n%s", out)
	}

	clean := parseFile(t, "CREATE TABLE users (id INT);")
	if ok, _ := m.Detect(clean); ok {
		t.Error("no drop, nothing to safeguard")
	}
}

func TestConcurrentIndex(t *testing.T) {
	m := NewConcurrentIndex()

	file := parseFile(t, "CREATE INDEX idx_a ON users(a);\nCREATE UNIQUE INDEX idx_b ON users(b);")
	if ok, _ := m.Detect(file); !ok {
		t.Fatal("blocking index builds should be detected")
	}

	out, err := m.Apply(file.Up, file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "CREATE INDEX CONCURRENTLY idx_a") {
		t.Errorf("plain index not rewritten:\n%s", out)
	}
	if !strings.Contains(out, "CREATE UNIQUE INDEX CONCURRENTLY idx_b") {
		t.Errorf("unique index not rewritten:\n%s", out)
	}

	already := parseFile(t, "CREATE INDEX CONCURRENTLY idx_a ON users(a);")
	if ok, _ := m.Detect(already); ok {
		t.Error("already-concurrent build should be skipped")
	}
	out, err = m.Apply(already.Up, already)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "CONCURRENTLY CONCURRENTLY") {
		t.Errorf("rewrite doubled the keyword:\n%s", out)
	}
}

func TestBatchedDeleteHint(t *testing.T) {
	m := NewBatchedDeleteHint()

	file := parseFile(t, "DELETE FROM events WHERE created_at < '2020-01-01';")
	if ok, _ := m.Detect(file); !ok {
		t.Fatal("bulk delete should be detected")
	}

	out, err := m.Apply(file.Up, file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "-- Consider batching: DELETE FROM events WHERE ctid IN") {
		t.Errorf("missing batching hint:\n%s", out)
	}
	if !strings.Contains(out, "DELETE FROM events WHERE created_at") {
		t.Errorf("original statement must survive:\n%s", out)
	}

	clean := parseFile(t, "CREATE TABLE users (id INT);")
	if ok, _ := m.Detect(clean); ok {
		t.Error("no delete, nothing to hint")
	}
}

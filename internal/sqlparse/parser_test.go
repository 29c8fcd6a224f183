package sqlparse

import (
	"strings"
	"testing"
)

func TestClassifyPostgres(t *testing.T) {
	tests := []struct {
		name            string
		sql             string
		wantKind        OpKind
		wantTable       string
		wantBlocking    bool
		wantDestructive bool
		wantDuration    DurationBucket
	}{
		{
			name:         "create table",
			sql:          "CREATE TABLE users (id BIGINT PRIMARY KEY, email TEXT NOT NULL)",
			wantKind:     OpCreateTable,
			wantTable:    "users",
			wantDuration: DurationFast,
		},
		{
			name:         "alter table add column",
			sql:          "ALTER TABLE users ADD COLUMN age INT",
			wantKind:     OpAlterTable,
			wantTable:    "users",
			wantBlocking: true,
			wantDuration: DurationMedium,
		},
		{
			name:            "alter table drop column",
			sql:             "ALTER TABLE users DROP COLUMN age",
			wantKind:        OpAlterTable,
			wantTable:       "users",
			wantBlocking:    true,
			wantDestructive: true,
			wantDuration:    DurationMedium,
		},
		{
			name:         "alter column type is slow",
			sql:          "ALTER TABLE users ALTER COLUMN age TYPE BIGINT",
			wantKind:     OpAlterTable,
			wantTable:    "users",
			wantBlocking: true,
			wantDuration: DurationSlow,
		},
		{
			name:            "drop table",
			sql:             "DROP TABLE users",
			wantKind:        OpDropTable,
			wantTable:       "users",
			wantBlocking:    true,
			wantDestructive: true,
			wantDuration:    DurationFast,
		},
		{
			name:         "create index blocks writes",
			sql:          "CREATE INDEX idx_users_email ON users(email)",
			wantKind:     OpCreateIndex,
			wantTable:    "users",
			wantBlocking: true,
			wantDuration: DurationMedium,
		},
		{
			name:         "create index concurrently does not block",
			sql:          "CREATE INDEX CONCURRENTLY idx_users_email ON users(email)",
			wantKind:     OpCreateIndex,
			wantTable:    "users",
			wantDuration: DurationSlow,
		},
		{
			name:            "truncate classified as delete",
			sql:             "TRUNCATE TABLE audit_log",
			wantKind:        OpDelete,
			wantTable:       "audit_log",
			wantDestructive: true,
			wantDuration:    DurationFast,
		},
		{
			name:            "delete without where is destructive",
			sql:             "DELETE FROM sessions",
			wantKind:        OpDelete,
			wantTable:       "sessions",
			wantDestructive: true,
			wantDuration:    DurationSlow,
		},
		{
			name:         "delete with where",
			sql:          "DELETE FROM sessions WHERE expires_at < now()",
			wantKind:     OpDelete,
			wantTable:    "sessions",
			wantDuration: DurationMedium,
		},
		{
			name:         "update without where is slow",
			sql:          "UPDATE users SET active = true",
			wantKind:     OpUpdate,
			wantTable:    "users",
			wantDuration: DurationSlow,
		},
		{
			name:         "rename is fast",
			sql:          "ALTER TABLE users RENAME COLUMN email TO email_address",
			wantKind:     OpAlterTable,
			wantTable:    "users",
			wantDuration: DurationFast,
		},
		{
			name:         "qualified drop index",
			sql:          "DROP INDEX idx_users_email",
			wantKind:     OpDropIndex,
			wantDuration: DurationFast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := Classify(tt.sql, DialectPostgres)

			if !op.FromAST {
				t.Errorf("expected AST classification for %q", tt.sql)
			}
			if op.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", op.Kind, tt.wantKind)
			}
			if tt.wantTable != "" && op.Table != tt.wantTable {
				t.Errorf("Table = %q, want %q", op.Table, tt.wantTable)
			}
			if op.IsBlocking != tt.wantBlocking {
				t.Errorf("IsBlocking = %v, want %v", op.IsBlocking, tt.wantBlocking)
			}
			if op.IsDestructive != tt.wantDestructive {
				t.Errorf("IsDestructive = %v, want %v", op.IsDestructive, tt.wantDestructive)
			}
			if op.Duration != tt.wantDuration {
				t.Errorf("Duration = %s, want %s", op.Duration, tt.wantDuration)
			}
		})
	}
}

func TestClassifyFallbackDialects(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		dialect   Dialect
		wantKind  OpKind
		wantTable string
	}{
		{
			name:      "mysql backtick identifiers",
			sql:       "ALTER TABLE `users` ADD COLUMN `age` INT",
			dialect:   DialectMySQL,
			wantKind:  OpAlterTable,
			wantTable: "users",
		},
		{
			name:      "mysql drop table",
			sql:       "DROP TABLE `sessions`",
			dialect:   DialectMySQL,
			wantKind:  OpDropTable,
			wantTable: "sessions",
		},
		{
			name:      "sqlite create table",
			sql:       "CREATE TABLE users (id INTEGER PRIMARY KEY)",
			dialect:   DialectSQLite,
			wantKind:  OpCreateTable,
			wantTable: "users",
		},
		{
			name:     "garbage is unknown",
			sql:      "FROB THE WIDGETS",
			dialect:  DialectMySQL,
			wantKind: OpUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := Classify(tt.sql, tt.dialect)
			if op.FromAST {
				t.Errorf("expected fallback classification for dialect %s", tt.dialect)
			}
			if op.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", op.Kind, tt.wantKind)
			}
			if tt.wantTable != "" && op.Table != tt.wantTable {
				t.Errorf("Table = %q, want %q", op.Table, tt.wantTable)
			}
		})
	}
}

func TestClassifyNeverFails(t *testing.T) {
	inputs := []string{"", "   ", ";;;", "not sql at all", "SELECT"}
	for _, sql := range inputs {
		op := Classify(sql, DialectPostgres)
		if op.Kind == "" {
			t.Errorf("Classify(%q) returned empty kind", sql)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want int
	}{
		{
			name: "two statements",
			sql:  "CREATE TABLE a (id INT); CREATE TABLE b (id INT);",
			want: 2,
		},
		{
			name: "semicolon inside string literal",
			sql:  "INSERT INTO t (v) VALUES ('a;b'); SELECT 1;",
			want: 2,
		},
		{
			name: "semicolon inside line comment",
			sql:  "SELECT 1 -- trailing; comment\n; SELECT 2;",
			want: 2,
		},
		{
			name: "no trailing semicolon",
			sql:  "SELECT 1",
			want: 1,
		},
		{
			name: "empty",
			sql:  "  \n ",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.sql)
			if len(got) != tt.want {
				t.Errorf("SplitStatements returned %d statements, want %d: %v", len(got), tt.want, got)
			}
		})
	}
}

func TestExtractEmbeddedSQL(t *testing.T) {
	ts := "export class AddUsers1705315800000 implements MigrationInterface {\n" +
		"  public async up(queryRunner: QueryRunner): Promise<void> {\n" +
		"    await queryRunner.query(`CREATE TABLE users (id SERIAL PRIMARY KEY)`);\n" +
		"    await queryRunner.query(`CREATE INDEX idx_users_id ON users(id)`);\n" +
		"  }\n" +
		"}\n"

	sql := ExtractEmbeddedSQL(ts)
	if !strings.Contains(sql, "CREATE TABLE users") {
		t.Errorf("expected extracted CREATE TABLE, got %q", sql)
	}
	if !strings.Contains(sql, "CREATE INDEX idx_users_id") {
		t.Errorf("expected extracted CREATE INDEX, got %q", sql)
	}
	if strings.Contains(sql, "MigrationInterface") {
		t.Errorf("extraction leaked TypeScript source: %q", sql)
	}

	plain := "CREATE TABLE t (id INT);"
	if got := ExtractEmbeddedSQL(plain); got != plain {
		t.Errorf("plain SQL should pass through unchanged, got %q", got)
	}
}

func TestParseMigrationSummary(t *testing.T) {
	sql := `
		CREATE TABLE orders (id BIGINT PRIMARY KEY);
		ALTER TABLE orders ADD COLUMN total NUMERIC;
		DROP TABLE legacy_orders;
	`
	summary := ParseMigration(sql, DialectPostgres)

	if len(summary.Operations) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(summary.Operations))
	}
	if summary.DestructiveCount != 1 {
		t.Errorf("DestructiveCount = %d, want 1", summary.DestructiveCount)
	}
	if summary.BlockingCount != 2 {
		t.Errorf("BlockingCount = %d, want 2", summary.BlockingCount)
	}
	if len(summary.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", summary.Warnings)
	}
}

func TestParseMigrationWarnsOnUnparseable(t *testing.T) {
	summary := ParseMigration("FROB THE WIDGETS", DialectPostgres)
	if len(summary.Warnings) == 0 {
		t.Error("expected a warning for unparseable statement")
	}
}

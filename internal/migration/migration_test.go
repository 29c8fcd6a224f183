package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

func TestParseContentSplitsUpDown(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantUp   string
		wantDown string
	}{
		{
			name:    "no marker is all up",
			content: "CREATE TABLE users (id INT);",
			wantUp:  "CREATE TABLE users (id INT);",
		},
		{
			name:     "plain down marker",
			content:  "CREATE TABLE users (id INT);\n-- down\nDROP TABLE users;",
			wantUp:   "CREATE TABLE users (id INT);",
			wantDown: "DROP TABLE users;",
		},
		{
			name:     "sql-migrate style marker",
			content:  "-- +migrate Up\nCREATE TABLE users (id INT);\n-- +migrate Down\nDROP TABLE users;",
			wantUp:   "-- +migrate Up\nCREATE TABLE users (id INT);",
			wantDown: "DROP TABLE users;",
		},
		{
			name:     "marker casing ignored",
			content:  "CREATE TABLE a (id INT);\n-- DOWN migration\nDROP TABLE a;",
			wantUp:   "CREATE TABLE a (id INT);",
			wantDown: "DROP TABLE a;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := ParseContent("m.sql", tt.content, sqlparse.DialectPostgres)
			if file.Up != tt.wantUp {
				t.Errorf("Up = %q, want %q", file.Up, tt.wantUp)
			}
			if file.Down != tt.wantDown {
				t.Errorf("Down = %q, want %q", file.Down, tt.wantDown)
			}
		})
	}
}

func TestParseContentTypeORM(t *testing.T) {
	content := `import { MigrationInterface, QueryRunner } from "typeorm";

export class AddUsers1705315800000 implements MigrationInterface {
    public async up(queryRunner: QueryRunner): Promise<void> {
        await queryRunner.query(` + "`CREATE TABLE users (id SERIAL PRIMARY KEY)`" + `);
        await queryRunner.query(` + "`CREATE INDEX idx_users_id ON users(id)`" + `);
    }

    public async down(queryRunner: QueryRunner): Promise<void> {
        await queryRunner.query(` + "`DROP TABLE users`" + `);
    }
}
`
	file := ParseContent("1705315800000-AddUsers.ts", content, sqlparse.DialectPostgres)

	if !strings.Contains(file.Up, "CREATE TABLE users") || !strings.Contains(file.Up, "CREATE INDEX idx_users_id") {
		t.Errorf("Up missing extracted statements:\n%s", file.Up)
	}
	if strings.Contains(file.Up, "DROP TABLE") {
		t.Errorf("down section leaked into Up:\n%s", file.Up)
	}
	if !strings.Contains(file.Down, "DROP TABLE users") {
		t.Errorf("Down = %q, want the down() statement", file.Down)
	}
	if len(file.Operations) != 2 {
		t.Errorf("Operations = %d, want 2 from the up section", len(file.Operations))
	}
}

func TestTimestampFromName(t *testing.T) {
	tests := []struct {
		name string
		want time.Time
	}{
		{
			name: "20240115103000_add_users.sql",
			want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "1705315800-add_users.sql",
			want: time.Unix(1705315800, 0).UTC(),
		},
		{
			name: "1705315800000-AddUsers.ts",
			want: time.Unix(1705315800, 0).UTC(),
		},
		{
			name: "add_users.sql",
			want: time.Time{},
		},
		{
			name: "001_add_users.sql",
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timestampFromName(tt.name)
			if !got.Equal(tt.want) {
				t.Errorf("timestampFromName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestChecksumStable(t *testing.T) {
	a := Checksum("CREATE TABLE users (id INT);")
	b := Checksum("CREATE TABLE users (id INT);")
	c := Checksum("CREATE TABLE users (id BIGINT);")

	if a != b {
		t.Error("identical content must hash identically")
	}
	if a == c {
		t.Error("different content must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}

func TestLoadOrdersAndFilters(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("002_indexes.sql", "CREATE INDEX idx_a ON a(x);")
	write("001_init.sql", "CREATE TABLE a (x INT);")
	write("README.md", "not a migration")
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := Load(dir, sqlparse.DialectPostgres)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("loaded %d files, want 2", len(files))
	}
	if files[0].Name != "001_init.sql" || files[1].Name != "002_indexes.sql" {
		t.Errorf("order = [%s %s], want name-sorted", files[0].Name, files[1].Name)
	}
	if files[0].Path != filepath.Join(dir, "001_init.sql") {
		t.Errorf("Path = %q", files[0].Path)
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope"), sqlparse.DialectPostgres); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

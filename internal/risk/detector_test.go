package risk

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sqlsentry/sqlsentry/internal/dbmeta"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

func categoryTypes(cats []Category) []CategoryType {
	var out []CategoryType
	for _, c := range cats {
		out = append(out, c.Type)
	}
	return out
}

func hasCategory(cats []Category, ct CategoryType, sev Severity) bool {
	for _, c := range cats {
		if c.Type == ct && c.Severity == sev {
			return true
		}
	}
	return false
}

func TestAnalyzeRuleFamilies(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantLevel Severity
		wantCats  []struct {
			typ CategoryType
			sev Severity
		}
		wantNoCats bool
	}{
		{
			name:      "add not null column without default",
			sql:       "ALTER TABLE users ADD COLUMN email TEXT NOT NULL;",
			wantLevel: SeverityMedium,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryBlocking, SeverityHigh},
				{CategoryConstraint, SeverityHigh},
			},
		},
		{
			name:      "drop table",
			sql:       "DROP TABLE users;",
			wantLevel: SeverityCritical,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryDestructive, SeverityCritical},
			},
		},
		{
			name:      "drop column is blocking and destructive",
			sql:       "ALTER TABLE users DROP COLUMN legacy_id;",
			wantLevel: SeverityHigh,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryBlocking, SeverityMedium},
				{CategoryDestructive, SeverityHigh},
			},
		},
		{
			name:      "foreign key constraint scans under lock",
			sql:       "ALTER TABLE orders ADD CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users(id);",
			wantLevel: SeverityHigh,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryBlocking, SeverityHigh},
			},
		},
		{
			name:      "create index without concurrently",
			sql:       "CREATE INDEX idx_orders_user ON orders(user_id);",
			wantLevel: SeverityMedium,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryBlocking, SeverityMedium},
			},
		},
		{
			name:       "create index concurrently is clean",
			sql:        "CREATE INDEX CONCURRENTLY idx_orders_user ON orders(user_id);",
			wantLevel:  SeverityLow,
			wantNoCats: true,
		},
		{
			name:      "truncate",
			sql:       "TRUNCATE TABLE audit_log;",
			wantLevel: SeverityCritical,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryDestructive, SeverityCritical},
			},
		},
		{
			name:      "delete without where",
			sql:       "DELETE FROM sessions;",
			wantLevel: SeverityHigh,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryDestructive, SeverityHigh},
			},
		},
		{
			name:      "rename breaks running code",
			sql:       "ALTER TABLE users RENAME TO accounts;",
			wantLevel: SeverityHigh,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryDowntime, SeverityHigh},
			},
		},
		{
			name:      "column type change",
			sql:       "ALTER TABLE users ALTER COLUMN age TYPE BIGINT;",
			wantLevel: SeverityMedium,
			wantCats: []struct {
				typ CategoryType
				sev Severity
			}{
				{CategoryDowntime, SeverityMedium},
			},
		},
		{
			name:       "plain create table is clean",
			sql:        "CREATE TABLE widgets (id BIGINT PRIMARY KEY, name TEXT);",
			wantLevel:  SeverityLow,
			wantNoCats: true,
		},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Analyze(tt.sql, nil)

			if tt.wantNoCats {
				if len(got.Categories) != 0 {
					t.Fatalf("expected no categories, got %v", categoryTypes(got.Categories))
				}
				if got.Score != 0 {
					t.Errorf("Score = %v, want 0", got.Score)
				}
			}
			for _, want := range tt.wantCats {
				if !hasCategory(got.Categories, want.typ, want.sev) {
					t.Errorf("missing %s/%s category in %v", want.typ, want.sev, categoryTypes(got.Categories))
				}
			}
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %s (score %.1f), want %s", got.Level, got.Score, tt.wantLevel)
			}
		})
	}
}

func TestAnalyzeBlockersOnCritical(t *testing.T) {
	d := NewDetector()
	got := d.Analyze("DROP TABLE users;", nil)

	if len(got.Blockers) != 1 {
		t.Fatalf("Blockers = %v, want exactly one", got.Blockers)
	}
	if !strings.HasPrefix(got.Blockers[0], string(CategoryDestructive)+": ") {
		t.Errorf("blocker %q should be prefixed with its category type", got.Blockers[0])
	}
	if len(got.Mitigations) == 0 {
		t.Error("expected a mitigation for DROP TABLE")
	}
}

func TestAnalyzeDeduplicatesAdvice(t *testing.T) {
	d := NewDetector()
	sql := "DROP TABLE users;\nDROP TABLE users;"
	got := d.Analyze(sql, nil)

	if len(got.Categories) != 2 {
		t.Fatalf("Categories = %d, want 2 (one per statement)", len(got.Categories))
	}
	if len(got.Blockers) != 1 {
		t.Errorf("Blockers = %v, want deduplicated to one", got.Blockers)
	}
	if len(got.Mitigations) != 1 {
		t.Errorf("Mitigations = %v, want deduplicated to one", got.Mitigations)
	}
}

func TestAnalyzePerformanceEscalation(t *testing.T) {
	big := []dbmeta.TableMetadata{{Name: "events", RowCount: 5_000_000}}
	small := []dbmeta.TableMetadata{{Name: "events", RowCount: 500}}
	sql := "ALTER TABLE events ADD COLUMN flag BOOLEAN;"

	d := NewDetector()

	got := d.Analyze(sql, big)
	if !hasCategory(got.Categories, CategoryPerformance, SeverityHigh) {
		t.Fatalf("expected PERFORMANCE/HIGH on a %d-row table, got %v", big[0].RowCount, categoryTypes(got.Categories))
	}
	for _, c := range got.Categories {
		if c.Type == CategoryPerformance && c.Impact.LockDurationSeconds != 5000 {
			t.Errorf("LockDurationSeconds = %v, want rows/1000 = 5000", c.Impact.LockDurationSeconds)
		}
	}

	if got := d.Analyze(sql, small); len(got.Categories) != 0 {
		t.Errorf("small table should not escalate, got %v", categoryTypes(got.Categories))
	}
	if got := d.Analyze(sql, nil); len(got.Categories) != 0 {
		t.Errorf("nil metadata should not escalate, got %v", categoryTypes(got.Categories))
	}
}

func TestAnalyzeFillsLockModeForPostgres(t *testing.T) {
	d := NewDetector()
	got := d.Analyze("ALTER TABLE users DROP COLUMN legacy_id;", nil)

	if len(got.Categories) == 0 {
		t.Fatal("expected findings")
	}
	for _, c := range got.Categories {
		if c.Impact.LockMode != "ACCESS EXCLUSIVE" {
			t.Errorf("LockMode = %q, want ACCESS EXCLUSIVE", c.Impact.LockMode)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	d := NewDetector()
	sql := "ALTER TABLE users ADD COLUMN email TEXT NOT NULL;\nDROP TABLE sessions;"
	tables := []dbmeta.TableMetadata{{Name: "users", RowCount: 5_000_000}}

	first := d.Analyze(sql, tables)
	second := d.Analyze(sql, tables)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Analyze diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first.Score != second.Score || first.Level != second.Level {
		t.Errorf("score/level unstable: %v/%s vs %v/%s", first.Score, first.Level, second.Score, second.Level)
	}
}

func TestAnalyzeMySQLDialect(t *testing.T) {
	d := NewDetector(WithDialect(sqlparse.DialectMySQL))
	got := d.Analyze("ALTER TABLE `users` MODIFY `age` BIGINT;", nil)

	if !hasCategory(got.Categories, CategoryDowntime, SeverityMedium) {
		t.Fatalf("expected DOWNTIME/MEDIUM for MODIFY, got %v", categoryTypes(got.Categories))
	}
	for _, c := range got.Categories {
		if c.Impact.LockMode != "" {
			t.Errorf("LockMode = %q, want empty outside postgres", c.Impact.LockMode)
		}
	}
}

package strategy

import (
	"strings"
	"testing"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/risk"
)

func TestGenerateAddNotNullColumn(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("ALTER TABLE users ADD COLUMN email TEXT NOT NULL;", nil)

	if len(s.EnhancedSteps) != 3 {
		t.Fatalf("steps = %d, want 3 (add nullable, backfill, tighten)", len(s.EnhancedSteps))
	}

	add, backfill, tighten := s.EnhancedSteps[0], s.EnhancedSteps[1], s.EnhancedSteps[2]

	if add.SQL != "ALTER TABLE users ADD COLUMN email TEXT;" {
		t.Errorf("step 1 SQL = %q, want nullable add", add.SQL)
	}
	if add.RiskLevel != risk.SeverityLow {
		t.Errorf("step 1 risk = %s, want LOW", add.RiskLevel)
	}

	if !strings.Contains(backfill.SQL, DefaultValuePlaceholder) {
		t.Errorf("backfill SQL %q should carry the default-value placeholder", backfill.SQL)
	}
	if backfill.OnFailure != FailureRollback {
		t.Errorf("backfill OnFailure = %s, want ROLLBACK", backfill.OnFailure)
	}
	if len(backfill.Dependencies) != 1 || backfill.Dependencies[0] != "step 1" {
		t.Errorf("backfill deps = %v, want [step 1]", backfill.Dependencies)
	}

	if !strings.Contains(tighten.SQL, "SET NOT NULL") {
		t.Errorf("step 3 SQL = %q, want SET NOT NULL", tighten.SQL)
	}
	if len(tighten.Dependencies) != 1 || tighten.Dependencies[0] != "step 2" {
		t.Errorf("tighten deps = %v, want [step 2]", tighten.Dependencies)
	}

	for i, step := range s.EnhancedSteps {
		if step.StepNumber != i+1 {
			t.Errorf("step %d numbered %d", i+1, step.StepNumber)
		}
	}
	if s.EstimatedSeconds != 45 {
		t.Errorf("EstimatedSeconds = %v, want 45", s.EstimatedSeconds)
	}
}

func TestGenerateDropColumnBacksUpFirst(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("ALTER TABLE users DROP COLUMN legacy_id;", nil)

	if len(s.EnhancedSteps) != 2 {
		t.Fatalf("steps = %d, want 2 (backup, drop)", len(s.EnhancedSteps))
	}
	if !strings.Contains(s.EnhancedSteps[0].SQL, "users_legacy_id_backup") {
		t.Errorf("backup SQL = %q, want users_legacy_id_backup table", s.EnhancedSteps[0].SQL)
	}
	if s.EnhancedSteps[1].CanRollback {
		t.Error("the drop step must not claim to be rollbackable")
	}

	if s.Rollback.CanRollback {
		t.Error("plan with a non-reversible step cannot roll back")
	}
	if s.Rollback.Complexity != RollbackImpossible {
		t.Errorf("Complexity = %s, want IMPOSSIBLE", s.Rollback.Complexity)
	}
	if len(s.Rollback.RollbackSteps) != 0 {
		t.Errorf("RollbackSteps = %v, want none once rollback is impossible", s.Rollback.RollbackSteps)
	}
}

func TestGenerateCreateIndexGoesConcurrent(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("CREATE UNIQUE INDEX idx_users_email ON users(email);", nil)

	if len(s.EnhancedSteps) != 1 {
		t.Fatalf("steps = %d, want 1", len(s.EnhancedSteps))
	}
	step := s.EnhancedSteps[0]
	if !strings.HasPrefix(step.SQL, "CREATE UNIQUE INDEX CONCURRENTLY idx_users_email") {
		t.Errorf("SQL = %q, want CONCURRENTLY inserted after CREATE UNIQUE INDEX", step.SQL)
	}
	if step.RiskLevel != risk.SeverityLow {
		t.Errorf("risk = %s, want LOW once the build is concurrent", step.RiskLevel)
	}

	if !s.Rollback.CanRollback {
		t.Fatal("index build should be rollbackable")
	}
	if got := s.Rollback.RollbackSteps[0].SQL; got != "DROP INDEX idx_users_email;" {
		t.Errorf("rollback SQL = %q, want DROP INDEX", got)
	}
	if s.Rollback.Complexity != RollbackSimple {
		t.Errorf("Complexity = %s, want SIMPLE", s.Rollback.Complexity)
	}
}

func TestGenerateDropTableTimestampedBackup(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	g := NewGenerator(WithClock(clock))
	s := g.Generate("DROP TABLE audit_log;", nil)

	if len(s.EnhancedSteps) != 2 {
		t.Fatalf("steps = %d, want 2", len(s.EnhancedSteps))
	}
	if !strings.Contains(s.EnhancedSteps[0].SQL, "audit_log_backup_20240102030405") {
		t.Errorf("backup SQL = %q, want timestamped backup name", s.EnhancedSteps[0].SQL)
	}
	if s.EnhancedSteps[1].RiskLevel != risk.SeverityCritical {
		t.Errorf("drop step risk = %s, want CRITICAL", s.EnhancedSteps[1].RiskLevel)
	}
}

func TestGenerateNumbersStepsAcrossStatements(t *testing.T) {
	g := NewGenerator()
	sql := "ALTER TABLE users ADD COLUMN email TEXT NOT NULL;\n" +
		"ALTER TABLE orders ADD CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users(id);"
	s := g.Generate(sql, nil)

	if len(s.EnhancedSteps) != 5 {
		t.Fatalf("steps = %d, want 5 (3 for the column, 2 for the constraint)", len(s.EnhancedSteps))
	}
	for i, step := range s.EnhancedSteps {
		if step.StepNumber != i+1 {
			t.Fatalf("step %d numbered %d, want contiguous numbering", i+1, step.StepNumber)
		}
	}

	// The constraint rule's local "step 1" dependency must shift past the
	// three column steps.
	last := s.EnhancedSteps[4]
	if len(last.Dependencies) != 1 || last.Dependencies[0] != "step 4" {
		t.Errorf("step 5 deps = %v, want [step 4]", last.Dependencies)
	}
}

func TestGeneratePassthroughStopsOnFailure(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("INSERT INTO settings (k, v) VALUES ('a', 'b')", nil)

	if len(s.EnhancedSteps) != 1 {
		t.Fatalf("steps = %d, want 1 passthrough", len(s.EnhancedSteps))
	}
	step := s.EnhancedSteps[0]
	if step.OnFailure != FailureStop {
		t.Errorf("OnFailure = %s, want STOP", step.OnFailure)
	}
	if !strings.HasSuffix(step.SQL, ";") {
		t.Errorf("SQL = %q, want terminated statement", step.SQL)
	}
}

func TestGenerateMaintenanceWindow(t *testing.T) {
	g := NewGenerator()

	risky := g.Generate("ALTER TABLE users DROP COLUMN legacy_id;", nil)
	if !risky.MaintenanceWindow.Recommended {
		t.Error("plan with a HIGH step should recommend a window")
	}
	if risky.MaintenanceWindow.OptimalDurationSeconds != risky.EstimatedSeconds*1.5 {
		t.Errorf("optimal = %v, want 1.5x minimum %v",
			risky.MaintenanceWindow.OptimalDurationSeconds, risky.EstimatedSeconds)
	}

	calm := g.Generate("CREATE TABLE widgets (id INT);", nil)
	if calm.MaintenanceWindow.Recommended {
		t.Errorf("plain CREATE TABLE should not need a window, got considerations %v",
			calm.MaintenanceWindow.Considerations)
	}
}

func TestGeneratePreFlightChecks(t *testing.T) {
	g := NewGenerator()
	sql := "ALTER TABLE users ADD COLUMN age INT;\nALTER TABLE users ADD COLUMN bio TEXT;"
	s := g.Generate(sql, nil)

	var existence, advisory int
	for _, c := range s.PreFlightChecks {
		switch c.OnFailure {
		case CheckBlock:
			existence++
			if !strings.Contains(c.Query, "'users'") {
				t.Errorf("existence check query = %q, want users lookup", c.Query)
			}
		case CheckWarn:
			advisory++
		}
	}
	if existence != 1 {
		t.Errorf("existence checks = %d, want 1 (deduplicated per table)", existence)
	}
	if advisory != 2 {
		t.Errorf("advisory checks = %d, want disk space and connection load", advisory)
	}

	if empty := g.Generate("", nil); empty.PreFlightChecks != nil {
		t.Errorf("empty migration should have no checks, got %v", empty.PreFlightChecks)
	}
}

func TestGeneratePostValidationMirrorsSteps(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("ALTER TABLE users ADD COLUMN email TEXT NOT NULL;", nil)

	if len(s.PostMigrationValidation) == 0 {
		t.Fatal("expected post-migration validation from step validation queries")
	}
	for _, v := range s.PostMigrationValidation {
		if !v.Required {
			t.Errorf("validation %q should be required", v.StepName)
		}
		if v.Query == "" {
			t.Errorf("validation %q has no query", v.StepName)
		}
	}
}

func TestGenerateRollbackDerivation(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("ALTER TABLE users ADD COLUMN email TEXT NOT NULL;", nil)

	rb := s.Rollback
	if !rb.CanRollback {
		t.Fatal("all three steps roll back")
	}
	if len(rb.RollbackSteps) != 3 {
		t.Fatalf("rollback steps = %d, want 3 in reverse order", len(rb.RollbackSteps))
	}
	if rb.RollbackSteps[0].ForStep != 3 || rb.RollbackSteps[2].ForStep != 1 {
		t.Errorf("rollback order = [%d %d %d], want reverse of forward steps",
			rb.RollbackSteps[0].ForStep, rb.RollbackSteps[1].ForStep, rb.RollbackSteps[2].ForStep)
	}
	if got := rb.RollbackSteps[0].SQL; !strings.Contains(got, "DROP NOT NULL") {
		t.Errorf("rollback for SET NOT NULL = %q, want DROP NOT NULL", got)
	}
	if got := rb.RollbackSteps[2].SQL; got != "ALTER TABLE users DROP COLUMN email;" {
		t.Errorf("rollback for ADD COLUMN = %q, want DROP COLUMN", got)
	}
	// The backfill has no mechanical inverse, which makes the plan COMPLEX.
	if !strings.Contains(rb.RollbackSteps[1].SQL, "MANUAL ROLLBACK REQUIRED") {
		t.Errorf("rollback for backfill = %q, want manual placeholder", rb.RollbackSteps[1].SQL)
	}
	if rb.Complexity != RollbackComplex {
		t.Errorf("Complexity = %s, want COMPLEX", rb.Complexity)
	}
	if rb.RollbackWindowSeconds != s.EstimatedSeconds {
		t.Errorf("RollbackWindowSeconds = %v, want %v", rb.RollbackWindowSeconds, s.EstimatedSeconds)
	}
}

func TestEnhancedSQLRendering(t *testing.T) {
	g := NewGenerator()
	s := g.Generate("ALTER TABLE users DROP COLUMN legacy_id;", nil)

	out := s.EnhancedSQL()
	if !strings.Contains(out, "-- Step 1: Back up users.legacy_id before dropping") {
		t.Errorf("rendered script missing step header:\n%s", out)
	}
	if !strings.Contains(out, "-- Step 2: Drop column legacy_id from users") {
		t.Errorf("rendered script missing second step:\n%s", out)
	}
}

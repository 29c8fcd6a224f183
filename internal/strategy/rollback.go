package strategy

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rbAddColumnRe     = regexp.MustCompile(`(?i)ALTER\s+TABLE\s+([\w".]+)\s+ADD\s+COLUMN\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w"]+)`)
	rbCreateIndexRe   = regexp.MustCompile(`(?i)CREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+NOT\s+EXISTS\s+)?([\w"]+)`)
	rbAddConstraintRe = regexp.MustCompile(`(?i)ALTER\s+TABLE\s+([\w".]+)\s+ADD\s+CONSTRAINT\s+([\w"]+)`)
	rbSetNotNullRe    = regexp.MustCompile(`(?i)ALTER\s+TABLE\s+([\w".]+)\s+ALTER\s+COLUMN\s+([\w"]+)\s+SET\s+NOT\s+NULL`)
	rbCreateTableRe   = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w".]+)`)
)

// deriveRollback walks the forward steps in reverse and emits the inverse of
// each. The first non-reversible step makes the whole plan non-rollbackable
// and halts emission: everything before it already ran and cannot be undone
// from here. Steps without a known inverse get a manual placeholder rather
// than failing generation.
func deriveRollback(steps []Step) RollbackStrategy {
	rb := RollbackStrategy{
		CanRollback: true,
		Complexity:  RollbackSimple,
	}

	manual := false

	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]

		if strings.Contains(step.SQL, "_backup") && strings.Contains(strings.ToUpper(step.SQL), "CREATE TABLE") {
			rb.DataBackupRequired = true
		}

		if !step.CanRollback {
			rb.CanRollback = false
			rb.Complexity = RollbackImpossible
			rb.RollbackSteps = nil
			return rb
		}

		inverse, ok := inverseSQL(step)
		if !ok {
			manual = true
			inverse = fmt.Sprintf("-- MANUAL ROLLBACK REQUIRED for step %d: %s", step.StepNumber, step.Description)
		}

		rb.RollbackSteps = append(rb.RollbackSteps, RollbackStep{
			ForStep:     step.StepNumber,
			Description: fmt.Sprintf("Undo step %d: %s", step.StepNumber, step.Description),
			SQL:         inverse,
		})
		rb.RollbackWindowSeconds += step.EstimatedSeconds
	}

	if manual || len(rb.RollbackSteps) > 3 {
		rb.Complexity = RollbackComplex
	}

	return rb
}

// inverseSQL returns the inverse statement for a forward step, or false when
// no mechanical inverse exists.
func inverseSQL(step Step) (string, bool) {
	upper := strings.ToUpper(step.SQL)

	switch {
	case strings.Contains(upper, "ADD COLUMN"):
		if m := rbAddColumnRe.FindStringSubmatch(step.SQL); m != nil {
			return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", m[1], m[2]), true
		}

	case strings.Contains(upper, "SET NOT NULL"):
		if m := rbSetNotNullRe.FindStringSubmatch(step.SQL); m != nil {
			return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", m[1], m[2]), true
		}

	case strings.Contains(upper, "ADD CONSTRAINT"):
		if m := rbAddConstraintRe.FindStringSubmatch(step.SQL); m != nil {
			return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", m[1], m[2]), true
		}

	case strings.Contains(upper, "CREATE INDEX") || strings.Contains(upper, "CREATE UNIQUE INDEX"):
		if m := rbCreateIndexRe.FindStringSubmatch(step.SQL); m != nil {
			return fmt.Sprintf("DROP INDEX %s;", m[1]), true
		}

	case strings.Contains(upper, "CREATE TABLE"):
		if m := rbCreateTableRe.FindStringSubmatch(step.SQL); m != nil {
			return fmt.Sprintf("DROP TABLE %s;", m[1]), true
		}

	case strings.HasPrefix(upper, "SELECT"):
		// Read-only verification steps need no inverse.
		return "-- verification step, nothing to roll back", true
	}

	return "", false
}

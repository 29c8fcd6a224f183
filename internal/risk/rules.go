package risk

import (
	"fmt"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/dbmeta"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// The five rule families. Each takes one classified statement and returns
// zero or more findings. Matching is case-insensitive text-pattern based, on
// purpose: the findings describe concrete production idioms, not grammar.

// LargeTableRowThreshold is the row count above which performance rules
// escalate based on live metadata.
const LargeTableRowThreshold = 1_000_000

func objects(op sqlparse.Operation) []string {
	var out []string
	if op.Table != "" {
		out = append(out, op.Table)
	}
	if op.Index != "" {
		out = append(out, op.Index)
	}
	return out
}

func blockingRules(op sqlparse.Operation, upper string) []Category {
	var cats []Category

	if strings.Contains(upper, "ADD COLUMN") && strings.Contains(upper, "NOT NULL") &&
		!strings.Contains(upper, "DEFAULT") {
		cats = append(cats, Category{
			Type:        CategoryBlocking,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("ADD COLUMN NOT NULL without DEFAULT forces a full table rewrite of %s while holding an exclusive lock", op.Table),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: 300, RollbackDifficulty: RollbackMedium},
			Mitigation:  "Add the column as nullable, backfill existing rows, then SET NOT NULL",
		})
	}

	if strings.Contains(upper, "DROP COLUMN") {
		cats = append(cats, Category{
			Type:        CategoryBlocking,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("DROP COLUMN takes an exclusive lock on %s", op.Table),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: 60, RollbackDifficulty: RollbackHard},
			Mitigation:  "Deprecate the column in application code first, then drop during a maintenance window",
		})
	}

	if strings.Contains(upper, "ADD CONSTRAINT") && strings.Contains(upper, "FOREIGN KEY") {
		cats = append(cats, Category{
			Type:        CategoryBlocking,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("ADD CONSTRAINT FOREIGN KEY scans every row of %s under an exclusive lock", op.Table),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: 180, RollbackDifficulty: RollbackEasy},
			Mitigation:  "Add the constraint NOT VALID, then VALIDATE CONSTRAINT in a second step",
		})
	}

	if strings.Contains(upper, "ADD CONSTRAINT") && strings.Contains(upper, "UNIQUE") {
		cats = append(cats, Category{
			Type:        CategoryBlocking,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("ADD CONSTRAINT UNIQUE builds an index on %s while blocking writes", op.Table),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: 120, RollbackDifficulty: RollbackEasy},
			Mitigation:  "Build a unique index CONCURRENTLY first, then attach it as a constraint",
		})
	}

	if op.Kind == sqlparse.OpCreateIndex && !strings.Contains(upper, "CONCURRENTLY") {
		cats = append(cats, Category{
			Type:        CategoryBlocking,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("CREATE INDEX without CONCURRENTLY blocks writes on %s for the whole build", op.Table),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: 120, RollbackDifficulty: RollbackEasy},
			Mitigation:  "Use CREATE INDEX CONCURRENTLY to allow writes during the build",
		})
	}

	return cats
}

func destructiveRules(op sqlparse.Operation, upper string) []Category {
	var cats []Category

	if strings.Contains(upper, "DROP TABLE") {
		cats = append(cats, Category{
			Type:        CategoryDestructive,
			Severity:    SeverityCritical,
			Description: fmt.Sprintf("DROP TABLE permanently deletes all data in %s", op.Table),
			Objects:     objects(op),
			Impact:      Impact{DataLoss: true, RollbackDifficulty: RollbackImpossible},
			Mitigation:  "Create a full backup table before dropping; verify the data is no longer referenced",
		})
	}

	if strings.Contains(upper, "DROP COLUMN") {
		cats = append(cats, Category{
			Type:        CategoryDestructive,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("DROP COLUMN permanently deletes column data on %s", op.Table),
			Objects:     objects(op),
			Impact:      Impact{DataLoss: true, RollbackDifficulty: RollbackImpossible},
			Mitigation:  "Back up the column values before dropping",
		})
	}

	if strings.Contains(upper, "TRUNCATE") {
		cats = append(cats, Category{
			Type:        CategoryDestructive,
			Severity:    SeverityCritical,
			Description: fmt.Sprintf("TRUNCATE removes every row from %s and cannot be undone", op.Table),
			Objects:     objects(op),
			Impact:      Impact{DataLoss: true, RollbackDifficulty: RollbackImpossible},
			Mitigation:  "Take a backup before truncating, or use DELETE with an explicit WHERE clause",
		})
	}

	if strings.Contains(upper, "DELETE FROM") && !strings.Contains(upper, "WHERE") {
		cats = append(cats, Category{
			Type:        CategoryDestructive,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("DELETE without WHERE removes every row from %s", op.Table),
			Objects:     objects(op),
			Impact:      Impact{DataLoss: true, RollbackDifficulty: RollbackHard},
			Mitigation:  "Add a WHERE clause, or delete in bounded batches with verification between them",
		})
	}

	if strings.HasPrefix(upper, "UPDATE") && !strings.Contains(upper, "WHERE") {
		cats = append(cats, Category{
			Type:        CategoryDestructive,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("UPDATE without WHERE rewrites every row of %s", op.Table),
			Objects:     objects(op),
			Impact:      Impact{RollbackDifficulty: RollbackHard},
			Mitigation:  "Add a WHERE clause, or update in bounded batches",
		})
	}

	return cats
}

func performanceRules(op sqlparse.Operation, upper string, tables []dbmeta.TableMetadata) []Category {
	meta := dbmeta.Lookup(tables, op.Table)
	if meta == nil || meta.RowCount < LargeTableRowThreshold {
		return nil
	}

	var cats []Category
	rows := float64(meta.RowCount)

	if strings.HasPrefix(upper, "ALTER TABLE") {
		cats = append(cats, Category{
			Type:        CategoryPerformance,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("ALTER TABLE on %s (%d rows) will hold locks for an extended period", op.Table, meta.RowCount),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: rows / 1000, RollbackDifficulty: RollbackMedium},
			Mitigation:  "Schedule during low traffic; consider an online schema-change strategy",
		})
	}

	if op.Kind == sqlparse.OpCreateIndex {
		cats = append(cats, Category{
			Type:        CategoryPerformance,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("Index build on %s (%d rows) will take significant time", op.Table, meta.RowCount),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: rows / 5000, RollbackDifficulty: RollbackEasy},
			Mitigation:  "Build CONCURRENTLY and monitor pg_stat_progress_create_index",
		})
	}

	if strings.Contains(upper, "ADD CONSTRAINT") && strings.Contains(upper, "CHECK") {
		cats = append(cats, Category{
			Type:        CategoryPerformance,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("CHECK constraint validation requires a full scan of %s (%d rows)", op.Table, meta.RowCount),
			Objects:     objects(op),
			Impact:      Impact{LockDurationSeconds: rows / 10000, RollbackDifficulty: RollbackEasy},
			Mitigation:  "Add the constraint NOT VALID, then VALIDATE CONSTRAINT separately",
		})
	}

	return cats
}

func constraintRules(op sqlparse.Operation, upper string) []Category {
	var cats []Category

	addsNotNull := (strings.Contains(upper, "ADD COLUMN") && strings.Contains(upper, "NOT NULL")) ||
		strings.Contains(upper, "SET NOT NULL")
	if addsNotNull {
		cats = append(cats, Category{
			Type:        CategoryConstraint,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("NOT NULL constraint on %s may fail if existing rows contain NULLs", op.Table),
			Objects:     objects(op),
			Impact:      Impact{RollbackDifficulty: RollbackEasy},
			Mitigation:  "Verify no NULLs exist (or backfill them) before tightening the constraint",
		})
	}

	if strings.Contains(upper, "ADD CONSTRAINT") && strings.Contains(upper, "UNIQUE") ||
		strings.Contains(upper, "CREATE UNIQUE INDEX") {
		cats = append(cats, Category{
			Type:        CategoryConstraint,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("UNIQUE constraint on %s may fail if duplicate values already exist", op.Table),
			Objects:     objects(op),
			Impact:      Impact{RollbackDifficulty: RollbackEasy},
			Mitigation:  "Check for duplicates before adding the constraint",
		})
	}

	return cats
}

func downtimeRules(op sqlparse.Operation, upper string) []Category {
	var cats []Category

	if strings.Contains(upper, "RENAME TO") || strings.Contains(upper, "RENAME TABLE") {
		cats = append(cats, Category{
			Type:        CategoryDowntime,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("Renaming %s breaks running application code that references the old name", op.Table),
			Objects:     objects(op),
			Impact:      Impact{DowntimeSeconds: 60, RollbackDifficulty: RollbackEasy},
			Mitigation:  "Deploy application code that handles both names before renaming",
		})
	}

	typeChange := strings.Contains(upper, "MODIFY") || strings.Contains(upper, " CHANGE ") ||
		(strings.Contains(upper, "ALTER COLUMN") && strings.Contains(upper, " TYPE "))
	if typeChange {
		cats = append(cats, Category{
			Type:        CategoryDowntime,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("Column type change on %s may require data conversion and new application handling", op.Table),
			Objects:     objects(op),
			Impact:      Impact{DowntimeSeconds: 30, RollbackDifficulty: RollbackMedium},
			Mitigation:  "Use an expand/contract migration: add new column, dual-write, backfill, cut over",
		})
	}

	return cats
}

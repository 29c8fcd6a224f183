package strategy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/risk"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// Identifier extraction for the rewrite rules. These only need to cover the
// statements the rules themselves matched, so the patterns stay simple.
var (
	addNotNullRe = regexp.MustCompile(`(?is)ALTER\s+TABLE\s+([\w".]+)\s+ADD\s+COLUMN\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w"]+)\s+(.+?)\s+NOT\s+NULL`)
	dropColumnRe = regexp.MustCompile(`(?i)ALTER\s+TABLE\s+([\w".]+)\s+DROP\s+COLUMN\s+(?:IF\s+EXISTS\s+)?([\w"]+)`)
	foreignKeyRe = regexp.MustCompile(`(?is)ALTER\s+TABLE\s+([\w".]+)\s+ADD\s+CONSTRAINT\s+([\w"]+)\s+FOREIGN\s+KEY\s*\(([^)]+)\)\s*REFERENCES\s+([\w".]+)\s*\(([^)]+)\)`)
	uniqueRe     = regexp.MustCompile(`(?is)ALTER\s+TABLE\s+([\w".]+)\s+ADD\s+CONSTRAINT\s+([\w"]+)\s+UNIQUE\s*\(([^)]+)\)`)
	dropTableRe  = regexp.MustCompile(`(?i)DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?([\w".]+)`)

	createIndexRe       = regexp.MustCompile(`(?i)^(CREATE\s+INDEX)`)
	createUniqueIndexRe = regexp.MustCompile(`(?i)^(CREATE\s+UNIQUE\s+INDEX)`)
)

// rewriteAddNotNullColumn expands ADD COLUMN ... NOT NULL (without DEFAULT)
// into add-nullable, backfill, tighten. The backfill value is a placeholder:
// only a human knows the right default for existing rows.
func (g *Generator) rewriteAddNotNullColumn(op sqlparse.Operation) []Step {
	m := addNotNullRe.FindStringSubmatch(op.SQL)
	if m == nil {
		return nil
	}
	table, column, colType := m[1], m[2], strings.TrimSpace(m[3])

	columnExists := fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.columns WHERE table_name = '%s' AND column_name = '%s';",
		table, column)

	return []Step{
		{
			Description:       fmt.Sprintf("Add column %s to %s as nullable", column, table),
			SQL:               fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, column, colType),
			RiskLevel:         risk.SeverityLow,
			EstimatedSeconds:  5,
			CanRollback:       true,
			ValidationQueries: []string{columnExists},
			OnFailure:         FailureStop,
		},
		{
			Description:      fmt.Sprintf("Backfill %s.%s for existing rows", table, column),
			SQL:              fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL;", table, column, DefaultValuePlaceholder, column),
			RiskLevel:        risk.SeverityMedium,
			EstimatedSeconds: 30,
			CanRollback:      true,
			Dependencies:     []string{stepLabel(1)},
			ValidationQueries: []string{fmt.Sprintf(
				"SELECT COUNT(*) FROM %s WHERE %s IS NULL;", table, column)},
			OnFailure: FailureRollback,
		},
		{
			Description:      fmt.Sprintf("Tighten %s.%s to NOT NULL", table, column),
			SQL:              fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", table, column),
			RiskLevel:        risk.SeverityMedium,
			EstimatedSeconds: 10,
			CanRollback:      true,
			Dependencies:     []string{stepLabel(2)},
			ValidationQueries: []string{fmt.Sprintf(
				"SELECT is_nullable FROM information_schema.columns WHERE table_name = '%s' AND column_name = '%s';",
				table, column)},
			OnFailure: FailureRollback,
		},
	}
}

// rewriteDropColumn backs the column up before dropping it. The drop itself
// is not reversible.
func (g *Generator) rewriteDropColumn(op sqlparse.Operation) []Step {
	m := dropColumnRe.FindStringSubmatch(op.SQL)
	if m == nil {
		return nil
	}
	table, column := m[1], m[2]
	backup := fmt.Sprintf("%s_%s_backup", table, column)

	return []Step{
		{
			Description:      fmt.Sprintf("Back up %s.%s before dropping", table, column),
			SQL:              fmt.Sprintf("CREATE TABLE %s AS SELECT id, %s FROM %s;", backup, column, table),
			RiskLevel:        risk.SeverityLow,
			EstimatedSeconds: 30,
			CanRollback:      true,
			ValidationQueries: []string{fmt.Sprintf(
				"SELECT COUNT(*) FROM %s;", backup)},
			OnFailure: FailureStop,
		},
		{
			Description:      fmt.Sprintf("Drop column %s from %s", column, table),
			SQL:              fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, column),
			RiskLevel:        risk.SeverityHigh,
			EstimatedSeconds: 60,
			CanRollback:      false,
			Dependencies:     []string{stepLabel(1)},
			OnFailure:        FailureStop,
		},
	}
}

// rewriteAddForeignKey checks referential integrity before adding the
// constraint so the ADD cannot fail halfway through its table scan.
func (g *Generator) rewriteAddForeignKey(op sqlparse.Operation) []Step {
	m := foreignKeyRe.FindStringSubmatch(op.SQL)
	if m == nil {
		return nil
	}
	table, column, refTable, refColumn := m[1], strings.TrimSpace(m[3]), m[4], strings.TrimSpace(m[5])

	return []Step{
		{
			Description: fmt.Sprintf("Verify no orphaned rows in %s before adding foreign key", table),
			SQL: fmt.Sprintf(
				"SELECT COUNT(*) FROM %s t LEFT JOIN %s r ON t.%s = r.%s WHERE t.%s IS NOT NULL AND r.%s IS NULL;",
				table, refTable, column, refColumn, column, refColumn),
			RiskLevel:        risk.SeverityMedium,
			EstimatedSeconds: 60,
			CanRollback:      true,
			OnFailure:        FailureStop,
		},
		{
			Description:      fmt.Sprintf("Add foreign key constraint on %s referencing %s", table, refTable),
			SQL:              terminate(op.SQL),
			RiskLevel:        risk.SeverityHigh,
			EstimatedSeconds: 120,
			CanRollback:      true,
			Dependencies:     []string{stepLabel(1)},
			ValidationQueries: []string{fmt.Sprintf(
				"SELECT COUNT(*) FROM information_schema.table_constraints WHERE table_name = '%s' AND constraint_name = '%s';",
				table, strings.Trim(m[2], `"`))},
			OnFailure: FailureRollback,
		},
	}
}

// rewriteAddUnique checks for duplicates before adding a UNIQUE constraint.
func (g *Generator) rewriteAddUnique(op sqlparse.Operation) []Step {
	m := uniqueRe.FindStringSubmatch(op.SQL)
	if m == nil {
		return nil
	}
	table, columns := m[1], strings.TrimSpace(m[3])

	return []Step{
		{
			Description: fmt.Sprintf("Verify no duplicate values in %s(%s)", table, columns),
			SQL: fmt.Sprintf(
				"SELECT %s, COUNT(*) FROM %s GROUP BY %s HAVING COUNT(*) > 1;",
				columns, table, columns),
			RiskLevel:        risk.SeverityMedium,
			EstimatedSeconds: 30,
			CanRollback:      true,
			OnFailure:        FailureStop,
		},
		{
			Description:      fmt.Sprintf("Add unique constraint on %s(%s)", table, columns),
			SQL:              terminate(op.SQL),
			RiskLevel:        risk.SeverityMedium,
			EstimatedSeconds: 60,
			CanRollback:      true,
			Dependencies:     []string{stepLabel(1)},
			ValidationQueries: []string{fmt.Sprintf(
				"SELECT COUNT(*) FROM information_schema.table_constraints WHERE table_name = '%s' AND constraint_name = '%s';",
				table, strings.Trim(m[2], `"`))},
			OnFailure: FailureRollback,
		},
	}
}

// rewriteCreateIndex switches a blocking index build to CONCURRENTLY.
// Slower in wall-clock time, but reads and writes continue throughout.
func (g *Generator) rewriteCreateIndex(op sqlparse.Operation) []Step {
	sql := strings.TrimSpace(op.SQL)
	var rewritten string
	if createUniqueIndexRe.MatchString(sql) {
		rewritten = createUniqueIndexRe.ReplaceAllString(sql, "$1 CONCURRENTLY")
	} else {
		rewritten = createIndexRe.ReplaceAllString(sql, "$1 CONCURRENTLY")
	}

	step := Step{
		Description:      fmt.Sprintf("Build index %s concurrently to avoid blocking writes", op.Index),
		SQL:              terminate(rewritten),
		RiskLevel:        risk.SeverityLow,
		EstimatedSeconds: 300,
		CanRollback:      true,
		OnFailure:        FailureStop,
	}
	if op.Index != "" {
		step.ValidationQueries = []string{fmt.Sprintf(
			"SELECT COUNT(*) FROM pg_indexes WHERE indexname = '%s';", op.Index)}
	}
	return []Step{step}
}

// rewriteDropTable snapshots the whole table before the drop. The backup
// name is timestamped so repeated enhanced runs never collide.
func (g *Generator) rewriteDropTable(op sqlparse.Operation) []Step {
	m := dropTableRe.FindStringSubmatch(op.SQL)
	if m == nil {
		return nil
	}
	table := m[1]
	backup := fmt.Sprintf("%s_backup_%s", table, g.now().UTC().Format("20060102150405"))

	return []Step{
		{
			Description:      fmt.Sprintf("Back up all data from %s before dropping", table),
			SQL:              fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s;", backup, table),
			RiskLevel:        risk.SeverityLow,
			EstimatedSeconds: 120,
			CanRollback:      true,
			ValidationQueries: []string{fmt.Sprintf(
				"SELECT COUNT(*) FROM %s;", backup)},
			OnFailure: FailureStop,
		},
		{
			Description:      fmt.Sprintf("Drop table %s", table),
			SQL:              fmt.Sprintf("DROP TABLE %s;", table),
			RiskLevel:        risk.SeverityCritical,
			EstimatedSeconds: 30,
			CanRollback:      false,
			Dependencies:     []string{stepLabel(1)},
			OnFailure:        FailureStop,
		},
	}
}

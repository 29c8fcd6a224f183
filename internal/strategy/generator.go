// Package strategy rewrites risky migration SQL into a safer, ordered
// multi-step plan with rollback, pre-flight, and post-flight validation.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/analyzer"
	"github.com/sqlsentry/sqlsentry/internal/dbmeta"
	"github.com/sqlsentry/sqlsentry/internal/risk"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// DefaultValuePlaceholder marks a value only a human can supply. Generated
// SQL containing it must not be executed as-is.
const DefaultValuePlaceholder = "[SPECIFY_DEFAULT_VALUE]"

// maintenanceWindowCutoffSeconds is the total duration above which a
// maintenance window is recommended regardless of step risk.
const maintenanceWindowCutoffSeconds = 300

// Generator produces enhancement strategies. Safe for concurrent use.
type Generator struct {
	dialect sqlparse.Dialect

	// now is the clock used for timestamped backup table names.
	now func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithDialect sets the target SQL dialect.
func WithDialect(dialect sqlparse.Dialect) GeneratorOption {
	return func(g *Generator) { g.dialect = dialect }
}

// WithClock overrides the clock. Used by tests to keep backup table names
// deterministic.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a Generator targeting PostgreSQL by default.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		dialect: sqlparse.DialectPostgres,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate dispatches every statement of the migration to a rewrite rule and
// assembles the full strategy: forward steps, derived rollback, pre-flight
// checks, post-migration validation, and the maintenance window.
func (g *Generator) Generate(sql string, tables []dbmeta.TableMetadata) Strategy {
	s := Strategy{OriginalSQL: sql}

	ops := sqlparse.ParseMigration(sql, g.dialect)
	blocking := ops.BlockingCount > 0

	for _, op := range ops.Operations {
		steps := g.rewriteStatement(op, tables)
		// Rule output numbers steps and dependencies locally; shift both by
		// the count of steps already emitted for earlier statements.
		offset := len(s.EnhancedSteps)
		for i := range steps {
			steps[i].StepNumber = offset + i + 1
			for j, dep := range steps[i].Dependencies {
				steps[i].Dependencies[j] = shiftLabel(dep, offset)
			}
			s.EnhancedSteps = append(s.EnhancedSteps, steps[i])
		}
	}

	for _, step := range s.EnhancedSteps {
		s.EstimatedSeconds += step.EstimatedSeconds
	}

	s.Rollback = deriveRollback(s.EnhancedSteps)
	s.PreFlightChecks = buildPreFlightChecks(ops.Operations)
	s.PostMigrationValidation = buildPostValidation(s.EnhancedSteps)
	s.MaintenanceWindow = buildMaintenanceWindow(s.EnhancedSteps, blocking, s.EstimatedSeconds)
	s.Dependencies = dependencyNotes(ops.Operations)

	return s
}

// rewriteStatement maps one classified statement to its safer step sequence.
// The fallthrough is a single passthrough step: its failure policy is STOP so
// an unreviewed statement never continues past an error.
func (g *Generator) rewriteStatement(op sqlparse.Operation, tables []dbmeta.TableMetadata) []Step {
	upper := strings.ToUpper(op.SQL)

	switch {
	case op.Kind == sqlparse.OpAlterTable &&
		strings.Contains(upper, "ADD COLUMN") &&
		strings.Contains(upper, "NOT NULL") &&
		!strings.Contains(upper, "DEFAULT"):
		if steps := g.rewriteAddNotNullColumn(op); steps != nil {
			return steps
		}

	case op.Kind == sqlparse.OpAlterTable && strings.Contains(upper, "DROP COLUMN"):
		if steps := g.rewriteDropColumn(op); steps != nil {
			return steps
		}

	case op.Kind == sqlparse.OpAlterTable && strings.Contains(upper, "ADD CONSTRAINT") &&
		strings.Contains(upper, "FOREIGN KEY"):
		if steps := g.rewriteAddForeignKey(op); steps != nil {
			return steps
		}

	case op.Kind == sqlparse.OpAlterTable && strings.Contains(upper, "ADD CONSTRAINT") &&
		strings.Contains(upper, "UNIQUE"):
		if steps := g.rewriteAddUnique(op); steps != nil {
			return steps
		}

	case op.Kind == sqlparse.OpCreateIndex && !strings.Contains(upper, "CONCURRENTLY") &&
		g.dialect == sqlparse.DialectPostgres:
		return g.rewriteCreateIndex(op)

	case op.Kind == sqlparse.OpDropTable:
		if steps := g.rewriteDropTable(op); steps != nil {
			return steps
		}
	}

	return []Step{{
		Description:      fmt.Sprintf("Execute statement on %s", describeTarget(op)),
		SQL:              terminate(op.SQL),
		RiskLevel:        risk.SeverityMedium,
		EstimatedSeconds: 5,
		CanRollback:      true,
		OnFailure:        FailureStop,
	}}
}

func describeTarget(op sqlparse.Operation) string {
	if op.Table != "" {
		return op.Table
	}
	if op.Index != "" {
		return op.Index
	}
	return "database"
}

// terminate makes sure a statement ends with a semicolon.
func terminate(sql string) string {
	sql = strings.TrimSpace(sql)
	if !strings.HasSuffix(sql, ";") {
		sql += ";"
	}
	return sql
}

func stepLabel(n int) string {
	return fmt.Sprintf("step %d", n)
}

// shiftLabel rewrites a rule-local "step N" label to its global number.
func shiftLabel(label string, offset int) string {
	var n int
	if _, err := fmt.Sscanf(label, "step %d", &n); err != nil {
		return label
	}
	return stepLabel(n + offset)
}

// dependencyNotes turns structural dependency edges into strategy-level
// ordering notes.
func dependencyNotes(ops []sqlparse.Operation) []string {
	analysis := analyzer.Analyze(ops)
	var notes []string
	for _, edge := range analysis.Dependencies {
		notes = append(notes, edge.Reason)
	}
	return notes
}

func renderSteps(steps []Step) string {
	var b strings.Builder
	for i, step := range steps {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "-- Step %d: %s\n%s\n", step.StepNumber, step.Description, terminate(step.SQL))
	}
	return b.String()
}

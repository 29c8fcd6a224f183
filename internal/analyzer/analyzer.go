package analyzer

import (
	"fmt"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// Per-operation duration estimates in seconds. These are deliberately coarse:
// they order operations by cost, they do not predict wall-clock time.
const (
	estCreateTable       = 1.0
	estAddColumnNotNull  = 10.0
	estAlterDrop         = 5.0
	estAlterTypeChange   = 15.0
	estAlterRename       = 0.5
	estAlterOther        = 2.0
	estCreateIndex       = 60.0
	estDropIndex         = 1.0
	estDML               = 5.0
)

// Overall complexity thresholds applied to the average per-operation score.
const (
	thresholdCritical = 3.5
	thresholdHigh     = 2.5
	thresholdMedium   = 1.5
)

// Analyze consumes the ordered operations of one migration and produces
// structural facts, a dependency edge set, and aggregate guidance.
func Analyze(ops []sqlparse.Operation) MigrationAnalysis {
	analysis := MigrationAnalysis{
		Operations: make([]OperationAnalysis, 0, len(ops)),
	}

	for _, op := range ops {
		analysis.Operations = append(analysis.Operations, analyzeOperation(op))
	}

	analysis.Dependencies = buildDependencies(analysis.Operations)
	aggregate(&analysis)
	return analysis
}

func analyzeOperation(op sqlparse.Operation) OperationAnalysis {
	oa := OperationAnalysis{
		Operation:  op,
		Complexity: ComplexityLow,
		LockScope:  LockNone,
	}

	switch op.Kind {
	case sqlparse.OpCreateTable:
		oa.Columns, oa.Constraints = extractTableDefinition(op.SQL)
		oa.EstimatedSeconds = estCreateTable

	case sqlparse.OpAlterTable:
		classifyAlter(&oa, op.SQL)

	case sqlparse.OpCreateIndex:
		oa.Complexity = ComplexityMedium
		if isConcurrent(op.SQL) {
			// CONCURRENTLY holds no long lock but takes roughly twice as
			// long as a blocking build.
			oa.LockScope = LockNone
			oa.EstimatedSeconds = estCreateIndex * 2
		} else {
			oa.LockScope = LockTable
			oa.EstimatedSeconds = estCreateIndex
		}

	case sqlparse.OpDropIndex:
		oa.EstimatedSeconds = estDropIndex
		if isConcurrent(op.SQL) {
			oa.LockScope = LockNone
			oa.EstimatedSeconds = estDropIndex * 2
		} else {
			oa.LockScope = LockTable
		}

	case sqlparse.OpDropTable:
		oa.Complexity = ComplexityCritical
		oa.LockScope = LockTable
		oa.EstimatedSeconds = estAlterDrop

	case sqlparse.OpInsert, sqlparse.OpUpdate, sqlparse.OpDelete:
		oa.Complexity = ComplexityMedium
		oa.LockScope = LockRow
		oa.EstimatedSeconds = estDML
		if op.IsDestructive {
			oa.Complexity = ComplexityHigh
		}

	case sqlparse.OpSelect:
		oa.EstimatedSeconds = 0.1

	default:
		oa.EstimatedSeconds = estAlterOther
	}

	return oa
}

// classifyAlter scores an ALTER TABLE by its sub-action.
func classifyAlter(oa *OperationAnalysis, sql string) {
	upper := strings.ToUpper(sql)
	oa.LockScope = LockTable

	switch {
	case strings.Contains(upper, "ADD COLUMN") && strings.Contains(upper, "NOT NULL") &&
		!strings.Contains(upper, "DEFAULT"):
		// Requires a full table rewrite plus a NULL scan.
		oa.Complexity = ComplexityHigh
		oa.EstimatedSeconds = estAddColumnNotNull

	case strings.Contains(upper, "DROP COLUMN") || strings.Contains(upper, "DROP CONSTRAINT"):
		oa.Complexity = ComplexityHigh
		oa.EstimatedSeconds = estAlterDrop

	case strings.Contains(upper, "MODIFY") || strings.Contains(upper, " CHANGE ") ||
		(strings.Contains(upper, "ALTER COLUMN") && strings.Contains(upper, " TYPE ")):
		oa.Complexity = ComplexityCritical
		oa.EstimatedSeconds = estAlterTypeChange

	case strings.Contains(upper, "RENAME"):
		oa.Complexity = ComplexityLow
		oa.EstimatedSeconds = estAlterRename
		oa.LockScope = LockNone

	default:
		oa.Complexity = ComplexityMedium
		oa.EstimatedSeconds = estAlterOther
	}

	if strings.Contains(upper, "ADD CONSTRAINT") {
		oa.Constraints = extractAlterConstraints(oa.Operation.SQL)
	}
}

func isConcurrent(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "CONCURRENTLY")
}

// aggregate computes the migration-level verdict from per-operation scores.
func aggregate(analysis *MigrationAnalysis) {
	if len(analysis.Operations) == 0 {
		analysis.OverallComplexity = ComplexityLow.String()
		return
	}

	var (
		total       float64
		destructive int
		blocking    int
		critical    int
		longRunning int
		hasIndex    bool
		hasUnbound  bool
	)

	for _, oa := range analysis.Operations {
		total += float64(oa.Complexity)
		analysis.TotalEstimatedSeconds += oa.EstimatedSeconds

		if oa.Operation.IsDestructive {
			destructive++
		}
		if oa.Operation.IsBlocking {
			blocking++
		}
		if oa.Complexity == ComplexityCritical {
			critical++
		}
		if oa.EstimatedSeconds >= 60 {
			longRunning++
		}
		if oa.Operation.Kind == sqlparse.OpCreateIndex && oa.LockScope == LockTable {
			hasIndex = true
		}
		if (oa.Operation.Kind == sqlparse.OpUpdate || oa.Operation.Kind == sqlparse.OpDelete) &&
			!strings.Contains(strings.ToUpper(oa.Operation.SQL), "WHERE") {
			hasUnbound = true
		}
	}

	avg := total / float64(len(analysis.Operations))
	switch {
	case avg >= thresholdCritical:
		analysis.OverallComplexity = ComplexityCritical.String()
	case avg >= thresholdHigh:
		analysis.OverallComplexity = ComplexityHigh.String()
	case avg >= thresholdMedium:
		analysis.OverallComplexity = ComplexityMedium.String()
	default:
		analysis.OverallComplexity = ComplexityLow.String()
	}

	if destructive > 0 {
		analysis.RiskFactors = append(analysis.RiskFactors,
			fmt.Sprintf("%d destructive operation(s)", destructive))
	}
	if blocking > 0 {
		analysis.RiskFactors = append(analysis.RiskFactors,
			fmt.Sprintf("%d blocking operation(s)", blocking))
	}
	if critical > 0 {
		analysis.RiskFactors = append(analysis.RiskFactors,
			fmt.Sprintf("%d critical-complexity operation(s)", critical))
	}
	if longRunning > 0 {
		analysis.RiskFactors = append(analysis.RiskFactors,
			fmt.Sprintf("%d long-running operation(s)", longRunning))
	}

	if hasIndex {
		analysis.Recommendations = append(analysis.Recommendations,
			"Build indexes with CREATE INDEX CONCURRENTLY to avoid blocking writes")
	}
	if hasUnbound {
		analysis.Recommendations = append(analysis.Recommendations,
			"Batch unbounded UPDATE/DELETE statements to limit lock time and WAL growth")
	}
	if destructive > 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			"Back up affected tables before running destructive operations")
	}
	if len(analysis.Dependencies) > 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			"Execute statements in dependency order; do not reorder or parallelize them")
	}
}

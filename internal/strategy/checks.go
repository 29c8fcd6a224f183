package strategy

import (
	"fmt"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/risk"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// buildPreFlightChecks emits a blocking table-existence check for every
// ALTER TABLE target plus two advisory environment checks. Advisory checks
// warn, they never block: their thresholds depend on the host.
func buildPreFlightChecks(ops []sqlparse.Operation) []PreFlightCheck {
	var checks []PreFlightCheck
	seen := map[string]bool{}

	for _, op := range ops {
		if op.Kind != sqlparse.OpAlterTable || op.Table == "" || seen[op.Table] {
			continue
		}
		seen[op.Table] = true
		checks = append(checks, PreFlightCheck{
			CheckName: fmt.Sprintf("table %s exists", op.Table),
			Query: fmt.Sprintf(
				"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = '%s';",
				strings.Trim(op.Table, `"`)),
			Expected:  "1",
			OnFailure: CheckBlock,
		})
	}

	if len(checks) == 0 && len(ops) == 0 {
		return nil
	}

	checks = append(checks,
		PreFlightCheck{
			CheckName: "sufficient disk space",
			Query:     "SELECT pg_size_pretty(pg_database_size(current_database()));",
			Expected:  "at least 2x the size of affected tables free",
			OnFailure: CheckWarn,
		},
		PreFlightCheck{
			CheckName: "low connection load",
			Query:     "SELECT COUNT(*) FROM pg_stat_activity WHERE state = 'active';",
			Expected:  "below normal peak connection count",
			OnFailure: CheckWarn,
		},
	)

	return checks
}

// buildPostValidation mirrors the forward steps' structural assertions: every
// validation query a step carries becomes a required post-migration check.
func buildPostValidation(steps []Step) []ValidationStep {
	var out []ValidationStep
	seen := map[string]bool{}

	for _, step := range steps {
		for _, q := range step.ValidationQueries {
			if seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, ValidationStep{
				StepName:  fmt.Sprintf("verify step %d: %s", step.StepNumber, step.Description),
				Query:     q,
				Condition: "result confirms the structural change",
				Required:  true,
			})
		}
	}

	return out
}

// buildMaintenanceWindow recommends a window when any step is HIGH or
// CRITICAL, any blocking operation was detected, or the total runtime
// exceeds the cutoff.
func buildMaintenanceWindow(steps []Step, blockingDetected bool, totalSeconds float64) MaintenanceWindow {
	w := MaintenanceWindow{
		MinimumDurationSeconds: totalSeconds,
		OptimalDurationSeconds: totalSeconds * 1.5,
	}

	var risky bool
	for _, step := range steps {
		if step.RiskLevel == risk.SeverityHigh || step.RiskLevel == risk.SeverityCritical {
			risky = true
			break
		}
	}

	w.Recommended = risky || blockingDetected || totalSeconds > maintenanceWindowCutoffSeconds

	if risky {
		w.Considerations = append(w.Considerations,
			"Plan includes high-risk steps; have the rollback plan ready before starting")
	}
	if blockingDetected {
		w.Considerations = append(w.Considerations,
			"Blocking operations detected; run during the lowest-traffic period")
	}
	if totalSeconds > maintenanceWindowCutoffSeconds {
		w.Considerations = append(w.Considerations,
			fmt.Sprintf("Estimated runtime %.0fs exceeds %ds; notify stakeholders of the window", totalSeconds, maintenanceWindowCutoffSeconds))
	}

	return w
}

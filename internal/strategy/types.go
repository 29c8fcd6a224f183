package strategy

import "github.com/sqlsentry/sqlsentry/internal/risk"

// OnFailure is the failure policy of one enhancement step.
type OnFailure string

const (
	FailureStop     OnFailure = "STOP"
	FailureRollback OnFailure = "ROLLBACK"
	FailureContinue OnFailure = "CONTINUE"
)

// Step is one action in the safer multi-step rewrite. StepNumber is 1-based
// and contiguous; Dependencies only ever name earlier steps.
type Step struct {
	StepNumber        int           `json:"step_number"`
	Description       string        `json:"description"`
	SQL               string        `json:"sql"`
	RiskLevel         risk.Severity `json:"risk_level"`
	EstimatedSeconds  float64       `json:"estimated_duration_seconds"`
	CanRollback       bool          `json:"can_rollback"`
	Dependencies      []string      `json:"dependencies,omitempty"`
	ValidationQueries []string      `json:"validation_queries,omitempty"`
	OnFailure         OnFailure     `json:"on_failure"`
}

// RollbackComplexity grades the derived rollback plan.
type RollbackComplexity string

const (
	RollbackSimple     RollbackComplexity = "SIMPLE"
	RollbackComplex    RollbackComplexity = "COMPLEX"
	RollbackImpossible RollbackComplexity = "IMPOSSIBLE"
)

// RollbackStep undoes one forward step.
type RollbackStep struct {
	ForStep     int    `json:"for_step"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// RollbackStrategy is the reverse-execution plan derived from the forward
// steps. If any forward step cannot roll back, CanRollback is false and
// Complexity is IMPOSSIBLE.
type RollbackStrategy struct {
	CanRollback           bool               `json:"can_rollback"`
	RollbackSteps         []RollbackStep     `json:"rollback_steps,omitempty"`
	DataBackupRequired    bool               `json:"data_backup_required"`
	Complexity            RollbackComplexity `json:"rollback_complexity"`
	RollbackWindowSeconds float64            `json:"rollback_window_seconds"`
}

// CheckAction says what to do when a pre-flight check fails.
type CheckAction string

const (
	CheckBlock CheckAction = "BLOCK"
	CheckWarn  CheckAction = "WARN"
)

// PreFlightCheck is a guard condition evaluated before execution.
type PreFlightCheck struct {
	CheckName string      `json:"check_name"`
	Query     string      `json:"query"`
	Expected  string      `json:"expected"`
	OnFailure CheckAction `json:"on_failure"`
}

// ValidationStep is a post-migration structural assertion.
type ValidationStep struct {
	StepName  string `json:"step_name"`
	Query     string `json:"query"`
	Condition string `json:"condition"`
	Required  bool   `json:"required"`
}

// MaintenanceWindow is scheduling guidance for the whole plan.
type MaintenanceWindow struct {
	Recommended            bool     `json:"recommended"`
	MinimumDurationSeconds float64  `json:"minimum_duration_seconds"`
	OptimalDurationSeconds float64  `json:"optimal_duration_seconds"`
	Considerations         []string `json:"considerations,omitempty"`
}

// Strategy is the full output of the generator for one migration.
type Strategy struct {
	OriginalSQL             string            `json:"original_sql"`
	EnhancedSteps           []Step            `json:"enhanced_steps"`
	Rollback                RollbackStrategy  `json:"rollback_strategy"`
	PreFlightChecks         []PreFlightCheck  `json:"pre_flight_checks,omitempty"`
	PostMigrationValidation []ValidationStep  `json:"post_migration_validation,omitempty"`
	EstimatedSeconds        float64           `json:"estimated_duration_seconds"`
	MaintenanceWindow       MaintenanceWindow `json:"maintenance_window"`
	Dependencies            []string          `json:"dependencies,omitempty"`
}

// EnhancedSQL renders the forward steps as a single executable script, each
// step preceded by a comment header.
func (s *Strategy) EnhancedSQL() string {
	return renderSteps(s.EnhancedSteps)
}

package risk

// Severity grades a single finding or the whole assessment.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CategoryType names the rule family that produced a finding.
type CategoryType string

const (
	CategoryBlocking    CategoryType = "BLOCKING"
	CategoryDestructive CategoryType = "DESTRUCTIVE"
	CategoryPerformance CategoryType = "PERFORMANCE"
	CategoryConstraint  CategoryType = "CONSTRAINT"
	CategoryDowntime    CategoryType = "DOWNTIME"
)

// RollbackDifficulty estimates how reversible an operation is.
type RollbackDifficulty string

const (
	RollbackEasy       RollbackDifficulty = "EASY"
	RollbackMedium     RollbackDifficulty = "MEDIUM"
	RollbackHard       RollbackDifficulty = "HARD"
	RollbackImpossible RollbackDifficulty = "IMPOSSIBLE"
)

// Impact quantifies the estimated blast radius of a finding.
type Impact struct {
	LockMode            string             `json:"lock_mode,omitempty"`
	LockDurationSeconds float64            `json:"lock_duration_seconds,omitempty"`
	DowntimeSeconds     float64            `json:"downtime_seconds,omitempty"`
	DataLoss            bool               `json:"data_loss,omitempty"`
	RollbackDifficulty  RollbackDifficulty `json:"rollback_difficulty"`
}

// Category is one detected risk finding. Many can apply to one statement.
type Category struct {
	Type        CategoryType `json:"type"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	Objects     []string     `json:"objects,omitempty"`
	Impact      Impact       `json:"impact"`
	Mitigation  string       `json:"mitigation,omitempty"`
}

// Assessment is the aggregate verdict for one migration.
type Assessment struct {
	Level       Severity   `json:"risk_level"`
	Score       float64    `json:"risk_score"`
	Categories  []Category `json:"risk_categories"`
	Mitigations []string   `json:"mitigations,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	Blockers    []string   `json:"blockers,omitempty"`
}

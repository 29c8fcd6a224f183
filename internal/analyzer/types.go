package analyzer

import "github.com/sqlsentry/sqlsentry/internal/sqlparse"

// Complexity scores an operation from routine to hazardous. The numeric
// values feed the per-migration average.
type Complexity int

const (
	ComplexityLow Complexity = iota + 1
	ComplexityMedium
	ComplexityHigh
	ComplexityCritical
)

func (c Complexity) String() string {
	switch c {
	case ComplexityLow:
		return "LOW"
	case ComplexityMedium:
		return "MEDIUM"
	case ComplexityHigh:
		return "HIGH"
	case ComplexityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// LockScope describes what an operation locks while it runs.
type LockScope string

const (
	LockNone  LockScope = "NONE"
	LockRow   LockScope = "ROW"
	LockTable LockScope = "TABLE"
)

// ColumnDef is a column definition extracted from CREATE TABLE.
type ColumnDef struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Nullable      bool    `json:"nullable"`
	PrimaryKey    bool    `json:"primary_key"`
	Unique        bool    `json:"unique"`
	AutoIncrement bool    `json:"auto_increment"`
	Default       *string `json:"default,omitempty"`
}

// ConstraintKind tags a table constraint.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY_KEY"
	ConstraintForeignKey ConstraintKind = "FOREIGN_KEY"
	ConstraintUnique     ConstraintKind = "UNIQUE"
	ConstraintCheck      ConstraintKind = "CHECK"
)

// ConstraintDef is a table-level constraint extracted from CREATE TABLE or
// ALTER TABLE ADD CONSTRAINT.
type ConstraintDef struct {
	Kind              ConstraintKind `json:"kind"`
	Name              string         `json:"name,omitempty"`
	Columns           []string       `json:"columns,omitempty"`
	ReferencedTable   string         `json:"referenced_table,omitempty"`
	ReferencedColumns []string       `json:"referenced_columns,omitempty"`
	OnDelete          string         `json:"on_delete,omitempty"`
	OnUpdate          string         `json:"on_update,omitempty"`
}

// OperationAnalysis is the structural view of a single classified statement.
type OperationAnalysis struct {
	Operation        sqlparse.Operation `json:"operation"`
	Columns          []ColumnDef        `json:"columns,omitempty"`
	Constraints      []ConstraintDef    `json:"constraints,omitempty"`
	Complexity       Complexity         `json:"complexity"`
	EstimatedSeconds float64            `json:"estimated_seconds"`
	LockScope        LockScope          `json:"lock_scope"`
}

// DependencyEdge records that operation From cannot run before operation To.
// Both are indices into MigrationAnalysis.Operations.
type DependencyEdge struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Reason string `json:"reason"`
}

// MigrationAnalysis aggregates structural facts for one migration.
type MigrationAnalysis struct {
	Operations            []OperationAnalysis `json:"operations"`
	Dependencies          []DependencyEdge    `json:"dependencies,omitempty"`
	OverallComplexity     string              `json:"overall_complexity"`
	TotalEstimatedSeconds float64             `json:"total_estimated_seconds"`
	RiskFactors           []string            `json:"risk_factors,omitempty"`
	Recommendations       []string            `json:"recommendations,omitempty"`
}

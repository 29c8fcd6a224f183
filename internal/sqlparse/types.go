package sqlparse

// Dialect identifies the SQL dialect a migration targets.
type Dialect string

const (
	DialectPostgres Dialect = "postgresql"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// OpKind classifies a SQL statement by its top-level operation.
type OpKind string

const (
	OpCreateTable OpKind = "CREATE_TABLE"
	OpAlterTable  OpKind = "ALTER_TABLE"
	OpDropTable   OpKind = "DROP_TABLE"
	OpCreateIndex OpKind = "CREATE_INDEX"
	OpDropIndex   OpKind = "DROP_INDEX"
	OpInsert      OpKind = "INSERT"
	OpUpdate      OpKind = "UPDATE"
	OpDelete      OpKind = "DELETE"
	OpSelect      OpKind = "SELECT"
	OpUnknown     OpKind = "UNKNOWN"
)

// DurationBucket is a coarse estimate of how long a statement runs.
type DurationBucket string

const (
	DurationFast   DurationBucket = "fast"
	DurationMedium DurationBucket = "medium"
	DurationSlow   DurationBucket = "slow"
)

// Operation is one classified SQL statement. Instances are created by
// Classify and are read-only afterward.
type Operation struct {
	Kind  OpKind `json:"kind"`
	SQL   string `json:"sql"`
	Table string `json:"table,omitempty"`
	Index string `json:"index,omitempty"`

	IsBlocking    bool `json:"is_blocking"`
	IsDestructive bool `json:"is_destructive"`
	AffectsData   bool `json:"affects_data"`
	RequiresLock  bool `json:"requires_lock"`

	Duration DurationBucket `json:"duration"`

	// FromAST is true when the statement was classified from a parsed
	// syntax tree rather than the keyword fallback.
	FromAST bool `json:"-"`
}

// MigrationSummary aggregates classification results for a whole migration.
type MigrationSummary struct {
	Operations       []Operation `json:"operations"`
	DestructiveCount int         `json:"destructive_count"`
	BlockingCount    int         `json:"blocking_count"`
	Warnings         []string    `json:"warnings,omitempty"`
}

package engine

import (
	"github.com/sqlsentry/sqlsentry/internal/migration"
)

// Category groups enhancement modules by intent.
type Category string

const (
	CategorySafety Category = "safety"
	CategorySpeed  Category = "speed"
)

// Metadata describes an enhancement module to the registry and the CLI.
type Metadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	// Priority orders application, highest first.
	Priority             int  `json:"priority"`
	RequiresConfirmation bool `json:"requiresConfirmation"`
}

// Module is a pluggable enhancement. Detect reports whether the module
// applies to a migration, Analyze explains what it would change, and Apply
// rewrites the migration content. Apply receives content rather than the
// File so modules can be chained over each other's output.
type Module interface {
	Metadata() Metadata
	Detect(file migration.File) (bool, error)
	Analyze(file migration.File) (string, error)
	Apply(content string, file migration.File) (string, error)
}

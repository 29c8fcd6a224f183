// Package engine orchestrates risk assessment, strategy generation, and
// enhancement modules over parsed migrations.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/sqlsentry/sqlsentry/internal/dbmeta"
	"github.com/sqlsentry/sqlsentry/internal/migration"
	"github.com/sqlsentry/sqlsentry/internal/risk"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
	"github.com/sqlsentry/sqlsentry/internal/strategy"
)

// Result is the combined outcome of analyzing one migration.
type Result struct {
	Migration  migration.File    `json:"migration"`
	Assessment risk.Assessment   `json:"assessment"`
	Strategy   strategy.Strategy `json:"strategy"`
	Applicable []Metadata        `json:"applicableModules,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Engine wires the risk detector, the strategy generator, and the module
// registry together and memoizes results by content hash.
type Engine struct {
	detector *risk.Detector
	gen      *strategy.Generator
	registry *Registry
	tables   []dbmeta.TableMetadata

	mu   sync.Mutex
	memo map[string]*Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialect sets the SQL dialect for both risk and strategy analysis.
func WithDialect(d sqlparse.Dialect) Option {
	return func(e *Engine) {
		e.detector = risk.NewDetector(risk.WithDialect(d))
		e.gen = strategy.NewGenerator(strategy.WithDialect(d))
	}
}

// WithTableMetadata supplies live table statistics so size-sensitive rules
// can fire.
func WithTableMetadata(tables []dbmeta.TableMetadata) Option {
	return func(e *Engine) { e.tables = tables }
}

// WithRegistry replaces the default module registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// New builds an Engine with postgres defaults and an empty registry.
func New(opts ...Option) *Engine {
	e := &Engine{
		detector: risk.NewDetector(),
		gen:      strategy.NewGenerator(),
		registry: NewRegistry(),
		memo:     make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the engine's module registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Enhance runs the full pipeline over one migration. Risk assessment and
// strategy generation run concurrently; results are memoized by the SHA-256
// of the up SQL, so re-analyzing an unchanged file returns the cached value.
func (e *Engine) Enhance(file migration.File) *Result {
	key := contentKey(file.Up)

	e.mu.Lock()
	if cached, ok := e.memo[key]; ok {
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	result := &Result{Migration: file}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Assessment = e.detector.Analyze(file.Up, e.tables)
	}()
	go func() {
		defer wg.Done()
		result.Strategy = e.gen.Generate(file.Up, e.tables)
	}()
	wg.Wait()

	applicable, warnings := e.registry.Detect(file)
	result.Applicable = applicable
	result.Warnings = append(result.Warnings, warnings...)

	e.mu.Lock()
	e.memo[key] = result
	e.mu.Unlock()

	return result
}

// EnhanceAll analyzes a batch of migrations in order.
func (e *Engine) EnhanceAll(files []migration.File) []*Result {
	results := make([]*Result, 0, len(files))
	for _, file := range files {
		results = append(results, e.Enhance(file))
	}
	return results
}

// Apply runs the selected enhancement modules over the migration and
// returns the rewritten up SQL.
func (e *Engine) Apply(file migration.File, moduleIDs []string) (content string, applied []string, warnings []string) {
	return e.registry.Apply(file, moduleIDs)
}

func contentKey(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// Package risk classifies migration SQL into weighted risk findings and an
// aggregate production-risk score.
package risk

import (
	"fmt"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/dbmeta"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// Detector runs the rule families over a migration. The zero-cost way to get
// one is NewDetector; it carries the scoring policy so that every call path
// scores identically.
type Detector struct {
	policy  ScoringPolicy
	dialect sqlparse.Dialect
}

// Option configures a Detector.
type Option func(*Detector)

// WithPolicy overrides the scoring policy. Used by tests; production code
// uses DefaultPolicy.
func WithPolicy(p ScoringPolicy) Option {
	return func(d *Detector) { d.policy = p }
}

// WithDialect sets the SQL dialect used for statement classification.
func WithDialect(dialect sqlparse.Dialect) Option {
	return func(d *Detector) { d.dialect = dialect }
}

// NewDetector returns a Detector with the canonical scoring policy.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		policy:  DefaultPolicy,
		dialect: sqlparse.DialectPostgres,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Analyze splits the migration into statements, runs every rule family per
// statement, and aggregates a deterministic assessment. tables may be nil;
// performance escalation is skipped in that case.
func (d *Detector) Analyze(sql string, tables []dbmeta.TableMetadata) Assessment {
	assessment := Assessment{}

	for _, stmt := range sqlparse.SplitStatements(sqlparse.ExtractEmbeddedSQL(sql)) {
		op := sqlparse.Classify(stmt, d.dialect)
		upper := strings.ToUpper(stmt)

		var found []Category
		found = append(found, blockingRules(op, upper)...)
		found = append(found, destructiveRules(op, upper)...)
		found = append(found, performanceRules(op, upper, tables)...)
		found = append(found, constraintRules(op, upper)...)
		found = append(found, downtimeRules(op, upper)...)

		if d.dialect == sqlparse.DialectPostgres {
			mode := LockModeFor(op, upper)
			for i := range found {
				if found[i].Impact.LockMode == "" {
					found[i].Impact.LockMode = mode.String()
				}
			}
		}

		assessment.Categories = append(assessment.Categories, found...)
	}

	assessment.Score = d.policy.Score(assessment.Categories)
	assessment.Level = d.policy.Level(assessment.Score)

	d.collectAdvice(&assessment)
	return assessment
}

// collectAdvice derives deduplicated mitigation, warning, and blocker
// strings from the category list.
func (d *Detector) collectAdvice(a *Assessment) {
	seenMitigation := map[string]bool{}
	seenWarning := map[string]bool{}
	seenBlocker := map[string]bool{}

	for _, c := range a.Categories {
		if c.Mitigation != "" && !seenMitigation[c.Mitigation] {
			seenMitigation[c.Mitigation] = true
			a.Mitigations = append(a.Mitigations, c.Mitigation)
		}

		warning := c.Description
		if !seenWarning[warning] {
			seenWarning[warning] = true
			a.Warnings = append(a.Warnings, warning)
		}

		if c.Severity == SeverityCritical {
			blocker := fmt.Sprintf("%s: %s", c.Type, c.Description)
			if !seenBlocker[blocker] {
				seenBlocker[blocker] = true
				a.Blockers = append(a.Blockers, blocker)
			}
		}
	}
}

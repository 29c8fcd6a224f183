package analyzer

import (
	"fmt"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// buildDependencies derives the intra-migration ordering constraints:
//   - an ALTER TABLE or CREATE INDEX on table T depends on an earlier
//     CREATE TABLE T in the same migration, and
//   - a FOREIGN KEY constraint referencing table R depends on CREATE TABLE R.
//
// Edges only ever point backward, so the result is acyclic by construction.
func buildDependencies(ops []OperationAnalysis) []DependencyEdge {
	// Table name -> index of the CREATE TABLE operation that introduced it.
	created := make(map[string]int)
	var edges []DependencyEdge

	for i, oa := range ops {
		op := oa.Operation

		switch op.Kind {
		case sqlparse.OpCreateTable:
			if op.Table != "" {
				created[normalizeName(op.Table)] = i
			}

		case sqlparse.OpAlterTable:
			if target, ok := created[normalizeName(op.Table)]; ok && target < i {
				edges = append(edges, DependencyEdge{
					From:   i,
					To:     target,
					Reason: fmt.Sprintf("ALTER TABLE %s requires the table created in step %d", op.Table, target+1),
				})
			}

		case sqlparse.OpCreateIndex:
			if target, ok := created[normalizeName(op.Table)]; ok && target < i {
				edges = append(edges, DependencyEdge{
					From:   i,
					To:     target,
					Reason: fmt.Sprintf("CREATE INDEX on %s requires the table created in step %d", op.Table, target+1),
				})
			}
		}

		// Foreign keys add an edge per referenced table, for constraints
		// embedded in CREATE TABLE as well as ADD CONSTRAINT.
		for _, constraint := range oa.Constraints {
			if constraint.Kind != ConstraintForeignKey || constraint.ReferencedTable == "" {
				continue
			}
			target, ok := created[normalizeName(constraint.ReferencedTable)]
			if !ok || target >= i {
				continue
			}
			edges = append(edges, DependencyEdge{
				From:   i,
				To:     target,
				Reason: fmt.Sprintf("FOREIGN KEY references %s created in step %d", constraint.ReferencedTable, target+1),
			})
		}
	}

	return edges
}

// normalizeName strips schema qualification and quoting so that
// "public"."users" and users compare equal.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.Trim(name, "`")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}

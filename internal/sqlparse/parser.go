package sqlparse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Classify turns one SQL statement into an Operation. For PostgreSQL the
// statement is parsed with pg_query and classified from the syntax tree;
// other dialects, and statements pg_query rejects, go through the keyword
// fallback. Classify never fails: the worst case is an OpUnknown operation.
func Classify(sql string, dialect Dialect) Operation {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Operation{Kind: OpUnknown, SQL: sql, Duration: DurationFast}
	}

	if dialect == DialectPostgres {
		if op, ok := classifyAST(trimmed); ok {
			return op
		}
	}

	return classifyFallback(trimmed, dialect)
}

// classifyAST parses the statement with pg_query and maps the first
// statement node to an Operation. Returns false when the statement does not
// parse or the node type is not one we map.
func classifyAST(sql string) (Operation, bool) {
	tree, err := pg_query.Parse(sql)
	if err != nil || len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return Operation{}, false
	}

	op := Operation{SQL: sql, FromAST: true}

	switch node := tree.Stmts[0].Stmt.Node.(type) {
	case *pg_query.Node_CreateStmt:
		op.Kind = OpCreateTable
		op.Table = rangeVarName(node.CreateStmt.Relation)
		op.Duration = DurationFast

	case *pg_query.Node_AlterTableStmt:
		op.Kind = OpAlterTable
		op.Table = rangeVarName(node.AlterTableStmt.Relation)
		op.IsBlocking = true
		op.RequiresLock = true
		op.Duration = DurationMedium
		for _, cmd := range node.AlterTableStmt.Cmds {
			alterCmd, ok := cmd.Node.(*pg_query.Node_AlterTableCmd)
			if !ok || alterCmd.AlterTableCmd == nil {
				continue
			}
			switch alterCmd.AlterTableCmd.Subtype {
			case pg_query.AlterTableType_AT_DropColumn:
				op.IsDestructive = true
				op.AffectsData = true
			case pg_query.AlterTableType_AT_AlterColumnType:
				op.AffectsData = true
				op.Duration = DurationSlow
			case pg_query.AlterTableType_AT_AddConstraint:
				op.Duration = DurationSlow
			}
		}

	case *pg_query.Node_DropStmt:
		switch node.DropStmt.RemoveType {
		case pg_query.ObjectType_OBJECT_TABLE:
			op.Kind = OpDropTable
			op.Table = firstObjectName(node.DropStmt.Objects)
			op.IsDestructive = true
			op.IsBlocking = true
			op.RequiresLock = true
			op.AffectsData = true
			op.Duration = DurationFast
		case pg_query.ObjectType_OBJECT_INDEX:
			op.Kind = OpDropIndex
			op.Index = firstObjectName(node.DropStmt.Objects)
			op.RequiresLock = true
			op.Duration = DurationFast
		default:
			return Operation{}, false
		}

	case *pg_query.Node_IndexStmt:
		op.Kind = OpCreateIndex
		op.Table = rangeVarName(node.IndexStmt.Relation)
		op.Index = node.IndexStmt.Idxname
		if node.IndexStmt.Concurrent {
			// Trades lock time for wall-clock time.
			op.Duration = DurationSlow
		} else {
			op.IsBlocking = true
			op.RequiresLock = true
			op.Duration = DurationMedium
		}

	case *pg_query.Node_TruncateStmt:
		// No TRUNCATE kind; it behaves like an unbounded DELETE.
		op.Kind = OpDelete
		if len(node.TruncateStmt.Relations) > 0 {
			op.Table = nodeRelationName(node.TruncateStmt.Relations[0])
		}
		op.IsDestructive = true
		op.AffectsData = true
		op.RequiresLock = true
		op.Duration = DurationFast

	case *pg_query.Node_InsertStmt:
		op.Kind = OpInsert
		op.Table = rangeVarName(node.InsertStmt.Relation)
		op.AffectsData = true
		op.Duration = DurationFast

	case *pg_query.Node_UpdateStmt:
		op.Kind = OpUpdate
		op.Table = rangeVarName(node.UpdateStmt.Relation)
		op.AffectsData = true
		op.Duration = DurationMedium
		if node.UpdateStmt.WhereClause == nil {
			op.Duration = DurationSlow
		}

	case *pg_query.Node_DeleteStmt:
		op.Kind = OpDelete
		op.Table = rangeVarName(node.DeleteStmt.Relation)
		op.AffectsData = true
		op.Duration = DurationMedium
		if node.DeleteStmt.WhereClause == nil {
			op.IsDestructive = true
			op.Duration = DurationSlow
		}

	case *pg_query.Node_SelectStmt:
		op.Kind = OpSelect
		op.Duration = DurationFast

	case *pg_query.Node_RenameStmt:
		// Renames are brief metadata-only changes.
		op.Kind = OpAlterTable
		op.Table = rangeVarName(node.RenameStmt.Relation)
		op.RequiresLock = true
		op.Duration = DurationFast

	default:
		return Operation{}, false
	}

	return op, true
}

func rangeVarName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return ""
	}
	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}
	return rv.Relname
}

func nodeRelationName(node *pg_query.Node) string {
	if node == nil {
		return ""
	}
	if rv, ok := node.Node.(*pg_query.Node_RangeVar); ok {
		return rangeVarName(rv.RangeVar)
	}
	return ""
}

// firstObjectName extracts the first (possibly qualified) name from a DROP
// statement's object list.
func firstObjectName(objects []*pg_query.Node) string {
	if len(objects) == 0 {
		return ""
	}
	if listNode, ok := objects[0].Node.(*pg_query.Node_List); ok {
		var parts []string
		for _, item := range listNode.List.Items {
			if strNode, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, strNode.String_.Sval)
			}
		}
		return strings.Join(parts, ".")
	}
	if strNode, ok := objects[0].Node.(*pg_query.Node_String_); ok {
		return strNode.String_.Sval
	}
	return ""
}

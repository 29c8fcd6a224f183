package analyzer

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// extractTableDefinition parses a CREATE TABLE statement and returns its
// column and constraint definitions. Statements that pg_query rejects yield
// empty results; column extraction is structural input, not a hard
// requirement, so there is no error path.
func extractTableDefinition(sql string) ([]ColumnDef, []ConstraintDef) {
	tree, err := pg_query.Parse(sql)
	if err != nil || len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil, nil
	}

	createNode, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_CreateStmt)
	if !ok {
		return nil, nil
	}

	var (
		columns     []ColumnDef
		constraints []ConstraintDef
	)

	for _, elt := range createNode.CreateStmt.TableElts {
		if elt.Node == nil {
			continue
		}
		switch node := elt.Node.(type) {
		case *pg_query.Node_ColumnDef:
			col, colConstraints := parseColumnDef(node.ColumnDef)
			columns = append(columns, col)
			constraints = append(constraints, colConstraints...)
		case *pg_query.Node_Constraint:
			if c, ok := parseConstraint(node.Constraint); ok {
				constraints = append(constraints, c)
			}
		}
	}

	return columns, constraints
}

// extractAlterConstraints returns the constraints added by an
// ALTER TABLE ... ADD CONSTRAINT statement.
func extractAlterConstraints(sql string) []ConstraintDef {
	tree, err := pg_query.Parse(sql)
	if err != nil || len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil
	}

	alterNode, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	var constraints []ConstraintDef
	for _, cmd := range alterNode.AlterTableStmt.Cmds {
		alterCmd, ok := cmd.Node.(*pg_query.Node_AlterTableCmd)
		if !ok || alterCmd.AlterTableCmd == nil {
			continue
		}
		if alterCmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddConstraint {
			continue
		}
		constraint := alterCmd.AlterTableCmd.GetDef().GetConstraint()
		if constraint == nil {
			continue
		}
		if c, ok := parseConstraint(constraint); ok {
			constraints = append(constraints, c)
		}
	}
	return constraints
}

// parseColumnDef reads one column definition. Column-level FOREIGN KEY
// constraints are promoted to table constraints so dependency analysis sees
// them alongside the ADD CONSTRAINT form.
func parseColumnDef(colDef *pg_query.ColumnDef) (ColumnDef, []ConstraintDef) {
	col := ColumnDef{
		Name:     colDef.Colname,
		Nullable: true,
	}
	var tableConstraints []ConstraintDef

	if colDef.TypeName != nil {
		col.Type = formatTypeName(colDef.TypeName)
		if strings.Contains(strings.ToLower(col.Type), "serial") {
			col.AutoIncrement = true
		}
	}

	for _, constraint := range colDef.Constraints {
		cons, ok := constraint.Node.(*pg_query.Node_Constraint)
		if !ok || cons.Constraint == nil {
			continue
		}
		switch cons.Constraint.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			col.Nullable = false
		case pg_query.ConstrType_CONSTR_NULL:
			col.Nullable = true
		case pg_query.ConstrType_CONSTR_PRIMARY:
			col.PrimaryKey = true
			col.Nullable = false
		case pg_query.ConstrType_CONSTR_UNIQUE:
			col.Unique = true
		case pg_query.ConstrType_CONSTR_DEFAULT:
			if cons.Constraint.RawExpr != nil {
				d := formatExpr(cons.Constraint.RawExpr)
				col.Default = &d
			}
		case pg_query.ConstrType_CONSTR_IDENTITY:
			col.AutoIncrement = true
		case pg_query.ConstrType_CONSTR_FOREIGN:
			if fk, ok := parseConstraint(cons.Constraint); ok {
				if len(fk.Columns) == 0 {
					fk.Columns = []string{col.Name}
				}
				tableConstraints = append(tableConstraints, fk)
			}
		}
	}

	return col, tableConstraints
}

func parseConstraint(constraint *pg_query.Constraint) (ConstraintDef, bool) {
	def := ConstraintDef{Name: constraint.Conname}

	switch constraint.Contype {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		def.Kind = ConstraintPrimaryKey
		def.Columns = stringList(constraint.Keys)

	case pg_query.ConstrType_CONSTR_UNIQUE:
		def.Kind = ConstraintUnique
		def.Columns = stringList(constraint.Keys)

	case pg_query.ConstrType_CONSTR_CHECK:
		def.Kind = ConstraintCheck

	case pg_query.ConstrType_CONSTR_FOREIGN:
		def.Kind = ConstraintForeignKey
		def.Columns = stringList(constraint.FkAttrs)
		def.ReferencedColumns = stringList(constraint.PkAttrs)
		if constraint.Pktable != nil {
			def.ReferencedTable = constraint.Pktable.Relname
		}
		if constraint.FkDelAction != "" {
			def.OnDelete = foreignKeyAction(constraint.FkDelAction)
		}
		if constraint.FkUpdAction != "" {
			def.OnUpdate = foreignKeyAction(constraint.FkUpdAction)
		}

	default:
		return ConstraintDef{}, false
	}

	return def, true
}

func stringList(nodes []*pg_query.Node) []string {
	var out []string
	for _, node := range nodes {
		if strNode, ok := node.Node.(*pg_query.Node_String_); ok {
			out = append(out, strNode.String_.Sval)
		}
	}
	return out
}

// formatTypeName renders a TypeName AST as a readable type string.
func formatTypeName(typeName *pg_query.TypeName) string {
	var parts []string
	for _, name := range typeName.Names {
		if nameNode, ok := name.Node.(*pg_query.Node_String_); ok {
			parts = append(parts, nameNode.String_.Sval)
		}
	}

	typeStr := strings.Join(parts, ".")
	if len(parts) > 1 && parts[0] == "pg_catalog" {
		typeStr = parts[len(parts)-1]
	}

	if len(typeName.Typmods) > 0 {
		var mods []string
		for _, mod := range typeName.Typmods {
			if constNode, ok := mod.Node.(*pg_query.Node_AConst); ok {
				if ival := constNode.AConst.GetIval(); ival != nil {
					mods = append(mods, strconv.FormatInt(int64(ival.Ival), 10))
				}
			}
		}
		if len(mods) > 0 {
			typeStr += "(" + strings.Join(mods, ",") + ")"
		}
	}

	if len(typeName.ArrayBounds) > 0 {
		typeStr += "[]"
	}

	return typeStr
}

// formatExpr renders a default-value expression. Anything beyond constants
// and simple function calls renders as DEFAULT.
func formatExpr(node *pg_query.Node) string {
	if node == nil {
		return ""
	}

	switch expr := node.Node.(type) {
	case *pg_query.Node_AConst:
		if ival := expr.AConst.GetIval(); ival != nil {
			return strconv.FormatInt(int64(ival.Ival), 10)
		}
		if fval := expr.AConst.GetFval(); fval != nil {
			return fval.Fval
		}
		if sval := expr.AConst.GetSval(); sval != nil {
			return "'" + sval.Sval + "'"
		}

	case *pg_query.Node_FuncCall:
		if len(expr.FuncCall.Funcname) > 0 {
			if nameNode, ok := expr.FuncCall.Funcname[0].Node.(*pg_query.Node_String_); ok {
				return nameNode.String_.Sval + "()"
			}
		}

	case *pg_query.Node_TypeCast:
		return formatExpr(expr.TypeCast.Arg)

	case *pg_query.Node_SqlvalueFunction:
		return "CURRENT_TIMESTAMP"
	}

	return "DEFAULT"
}

func foreignKeyAction(action string) string {
	if len(action) == 1 {
		switch action[0] {
		case 'a':
			return "NO ACTION"
		case 'r':
			return "RESTRICT"
		case 'c':
			return "CASCADE"
		case 'n':
			return "SET NULL"
		case 'd':
			return "SET DEFAULT"
		}
	}
	return action
}


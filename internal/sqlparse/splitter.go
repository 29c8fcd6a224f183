package sqlparse

import (
	"fmt"
	"regexp"
	"strings"
)

// queryRunnerRe matches TypeORM's generated migration calls:
// await queryRunner.query(`...`) — the SQL lives inside a backtick template.
var queryRunnerRe = regexp.MustCompile("(?s)queryRunner\\.query\\(\\s*`([^`]*)`")

// ExtractEmbeddedSQL pulls SQL out of generator-managed migration sources.
// Plain .sql content is returned unchanged; TypeORM-style sources are reduced
// to the concatenation of their embedded query strings.
func ExtractEmbeddedSQL(content string) string {
	if !strings.Contains(content, "queryRunner.query") {
		return content
	}
	matches := queryRunnerRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return content
	}
	var stmts []string
	for _, m := range matches {
		sql := strings.TrimSpace(m[1])
		if sql == "" {
			continue
		}
		if !strings.HasSuffix(sql, ";") {
			sql += ";"
		}
		stmts = append(stmts, sql)
	}
	return strings.Join(stmts, "\n")
}

// SplitStatements splits migration SQL into individual statements on
// semicolons, skipping separators inside quoted strings and line comments.
func SplitStatements(sql string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inSingle bool
		inDouble bool
		inLineCo bool
	)

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if inLineCo {
			current.WriteByte(c)
			if c == '\n' {
				inLineCo = false
			}
			continue
		}

		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '-':
			if !inSingle && !inDouble && i+1 < len(sql) && sql[i+1] == '-' {
				inLineCo = true
			}
		case ';':
			if !inSingle && !inDouble {
				stmt := strings.TrimSpace(current.String())
				if stmt != "" {
					stmts = append(stmts, stmt)
				}
				current.Reset()
				continue
			}
		}
		current.WriteByte(c)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		stmts = append(stmts, stmt)
	}

	return stmts
}

// ParseMigration classifies every statement in a migration and aggregates
// destructive/blocking counts. Statements that fall back to keyword
// classification are reported as warnings, never as errors.
func ParseMigration(sql string, dialect Dialect) MigrationSummary {
	summary := MigrationSummary{}

	for _, stmt := range SplitStatements(ExtractEmbeddedSQL(sql)) {
		op := Classify(stmt, dialect)
		summary.Operations = append(summary.Operations, op)

		if op.IsDestructive {
			summary.DestructiveCount++
		}
		if op.IsBlocking {
			summary.BlockingCount++
		}
		if op.Kind == OpUnknown {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("could not classify statement: %s", truncateSQL(stmt, 80)))
		} else if dialect == DialectPostgres && !op.FromAST {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("statement did not parse, classified by keywords: %s", truncateSQL(stmt, 80)))
		}
	}

	return summary
}

func truncateSQL(sql string, max int) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) <= max {
		return sql
	}
	return sql[:max] + "..."
}

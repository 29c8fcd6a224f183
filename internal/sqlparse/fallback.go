package sqlparse

import (
	"regexp"
	"strings"
)

// Keyword fallback classifier. Used for dialects pg_query does not cover and
// for statements it rejects. Best effort only: callers should treat the
// result as degraded confidence.

var (
	createTableRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w".]+|` + "`[^`]+`" + `)`)
	dropTableRe   = regexp.MustCompile(`(?i)DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?([\w".]+|` + "`[^`]+`" + `)`)
	alterTableRe  = regexp.MustCompile(`(?i)ALTER\s+TABLE\s+(?:ONLY\s+)?([\w".]+|` + "`[^`]+`" + `)`)
	createIndexRe = regexp.MustCompile(`(?i)CREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+NOT\s+EXISTS\s+)?([\w".]+|` + "`[^`]+`" + `)`)
	dropIndexRe   = regexp.MustCompile(`(?i)DROP\s+INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+EXISTS\s+)?([\w".]+|` + "`[^`]+`" + `)`)
	onTableRe     = regexp.MustCompile(`(?i)\sON\s+([\w".]+|` + "`[^`]+`" + `)`)
	dmlTableRe    = regexp.MustCompile(`(?i)(?:INSERT\s+INTO|UPDATE|DELETE\s+FROM|TRUNCATE\s+TABLE|TRUNCATE)\s+([\w".]+|` + "`[^`]+`" + `)`)
)

func classifyFallback(sql string, dialect Dialect) Operation {
	upper := strings.ToUpper(sql)
	op := Operation{Kind: OpUnknown, SQL: sql, Duration: DurationFast}

	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		op.Kind = OpCreateTable
		op.Table = matchName(createTableRe, sql, dialect)

	case strings.HasPrefix(upper, "DROP TABLE"):
		op.Kind = OpDropTable
		op.Table = matchName(dropTableRe, sql, dialect)
		op.IsDestructive = true
		op.IsBlocking = true
		op.RequiresLock = true
		op.AffectsData = true

	case strings.HasPrefix(upper, "ALTER TABLE"):
		op.Kind = OpAlterTable
		op.Table = matchName(alterTableRe, sql, dialect)
		op.IsBlocking = true
		op.RequiresLock = true
		op.Duration = DurationMedium
		if strings.Contains(upper, "DROP COLUMN") || strings.Contains(upper, "DROP ") {
			op.IsDestructive = strings.Contains(upper, "DROP COLUMN")
			op.AffectsData = op.IsDestructive
		}
		if strings.Contains(upper, "MODIFY") || strings.Contains(upper, "CHANGE") ||
			(strings.Contains(upper, "ALTER COLUMN") && strings.Contains(upper, "TYPE")) {
			op.AffectsData = true
			op.Duration = DurationSlow
		}
		if strings.Contains(upper, "RENAME") {
			op.Duration = DurationFast
			op.IsBlocking = false
		}

	case strings.HasPrefix(upper, "CREATE INDEX") || strings.HasPrefix(upper, "CREATE UNIQUE INDEX"):
		op.Kind = OpCreateIndex
		op.Index = matchName(createIndexRe, sql, dialect)
		op.Table = matchName(onTableRe, sql, dialect)
		if strings.Contains(upper, "CONCURRENTLY") {
			op.Duration = DurationSlow
		} else {
			op.IsBlocking = true
			op.RequiresLock = true
			op.Duration = DurationMedium
		}

	case strings.HasPrefix(upper, "DROP INDEX"):
		op.Kind = OpDropIndex
		op.Index = matchName(dropIndexRe, sql, dialect)
		op.RequiresLock = true

	case strings.HasPrefix(upper, "TRUNCATE"):
		op.Kind = OpDelete
		op.Table = matchName(dmlTableRe, sql, dialect)
		op.IsDestructive = true
		op.AffectsData = true
		op.RequiresLock = true

	case strings.HasPrefix(upper, "INSERT"):
		op.Kind = OpInsert
		op.Table = matchName(dmlTableRe, sql, dialect)
		op.AffectsData = true

	case strings.HasPrefix(upper, "UPDATE"):
		op.Kind = OpUpdate
		op.Table = matchName(dmlTableRe, sql, dialect)
		op.AffectsData = true
		op.Duration = DurationMedium
		if !strings.Contains(upper, "WHERE") {
			op.Duration = DurationSlow
		}

	case strings.HasPrefix(upper, "DELETE"):
		op.Kind = OpDelete
		op.Table = matchName(dmlTableRe, sql, dialect)
		op.AffectsData = true
		op.Duration = DurationMedium
		if !strings.Contains(upper, "WHERE") {
			op.IsDestructive = true
			op.Duration = DurationSlow
		}

	case strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH"):
		op.Kind = OpSelect
	}

	return op
}

// matchName applies an identifier regex and strips dialect quoting
// (double quotes for postgres/sqlite, backticks for mysql).
func matchName(re *regexp.Regexp, sql string, dialect Dialect) string {
	matches := re.FindStringSubmatch(sql)
	if len(matches) < 2 {
		return ""
	}
	name := matches[1]
	switch dialect {
	case DialectMySQL:
		name = strings.Trim(name, "`")
	default:
		name = strings.ReplaceAll(name, `"`, "")
	}
	return name
}

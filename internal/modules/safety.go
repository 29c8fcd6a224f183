package modules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/engine"
	"github.com/sqlsentry/sqlsentry/internal/migration"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// DefaultLockTimeoutSeconds bounds how long a DDL statement may wait on a
// lock before giving up instead of queueing behind long transactions.
const DefaultLockTimeoutSeconds = 5

// TransactionWrapper wraps a migration's statements in a single transaction
// so a mid-migration failure leaves the schema untouched.
type TransactionWrapper struct{}

func NewTransactionWrapper() *TransactionWrapper { return &TransactionWrapper{} }

func (m *TransactionWrapper) Metadata() engine.Metadata {
	return engine.Metadata{
		ID:          "transaction-wrapper",
		Name:        "Transaction Wrapper",
		Description: "Wraps migration statements in BEGIN/COMMIT so partial failures roll back cleanly",
		Category:    engine.CategorySafety,
		Priority:    100,
	}
}

func (m *TransactionWrapper) Detect(file migration.File) (bool, error) {
	upper := strings.ToUpper(file.Up)
	if strings.Contains(upper, "BEGIN") || strings.Contains(upper, "START TRANSACTION") {
		return false, nil
	}
	// CONCURRENTLY cannot run inside a transaction block.
	if strings.Contains(upper, "CONCURRENTLY") {
		return false, nil
	}
	return len(file.Operations) > 0, nil
}

func (m *TransactionWrapper) Analyze(file migration.File) (string, error) {
	return fmt.Sprintf("Would wrap %d statement(s) in a single transaction; a failure at any point rolls back all of them.",
		len(file.Operations)), nil
}

func (m *TransactionWrapper) Apply(content string, file migration.File) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return content, nil
	}
	if !strings.HasSuffix(trimmed, ";") {
		trimmed += ";"
	}
	return "BEGIN;\n\n" + trimmed + "\n\nCOMMIT;\n", nil
}

// LockTimeout prepends a lock_timeout so DDL fails fast rather than queueing
// behind long-running transactions and blocking everything after it.
type LockTimeout struct {
	seconds int
}

func NewLockTimeout(seconds int) *LockTimeout {
	if seconds <= 0 {
		seconds = DefaultLockTimeoutSeconds
	}
	return &LockTimeout{seconds: seconds}
}

func (m *LockTimeout) Metadata() engine.Metadata {
	return engine.Metadata{
		ID:          "lock-timeout",
		Name:        "Lock Timeout",
		Description: "Sets lock_timeout so blocked DDL aborts instead of stalling the connection queue",
		Category:    engine.CategorySafety,
		Priority:    90,
	}
}

func (m *LockTimeout) Detect(file migration.File) (bool, error) {
	upper := strings.ToUpper(file.Up)
	if strings.Contains(upper, "LOCK_TIMEOUT") {
		return false, nil
	}
	for _, op := range file.Operations {
		if op.RequiresLock {
			return true, nil
		}
	}
	return false, nil
}

func (m *LockTimeout) Analyze(file migration.File) (string, error) {
	var locking int
	for _, op := range file.Operations {
		if op.RequiresLock {
			locking++
		}
	}
	return fmt.Sprintf("Would set lock_timeout = '%ds' ahead of %d lock-taking statement(s); a blocked statement aborts instead of queueing.",
		m.seconds, locking), nil
}

func (m *LockTimeout) Apply(content string, file migration.File) (string, error) {
	return fmt.Sprintf("SET lock_timeout = '%ds';\n\n%s", m.seconds, strings.TrimSpace(content)), nil
}

// DropTableSafeguard inserts a timestamped backup copy ahead of every DROP
// TABLE so the data survives the migration.
type DropTableSafeguard struct {
	now func() time.Time
}

func NewDropTableSafeguard() *DropTableSafeguard {
	return &DropTableSafeguard{now: time.Now}
}

var dropTableStmtRe = regexp.MustCompile(`(?im)^\s*DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?([A-Za-z_][A-Za-z0-9_."]*)`)

func (m *DropTableSafeguard) Metadata() engine.Metadata {
	return engine.Metadata{
		ID:                   "drop-table-safeguard",
		Name:                 "Drop Table Safeguard",
		Description:          "Copies a table to a timestamped backup before dropping it",
		Category:             engine.CategorySafety,
		Priority:             80,
		RequiresConfirmation: true,
	}
}

func (m *DropTableSafeguard) Detect(file migration.File) (bool, error) {
	for _, op := range file.Operations {
		if op.Kind == sqlparse.OpDropTable {
			return true, nil
		}
	}
	return false, nil
}

func (m *DropTableSafeguard) Analyze(file migration.File) (string, error) {
	var tables []string
	for _, op := range file.Operations {
		if op.Kind == sqlparse.OpDropTable && op.Table != "" {
			tables = append(tables, op.Table)
		}
	}
	if len(tables) == 0 {
		return "Would back up dropped tables before removal.", nil
	}
	return fmt.Sprintf("Would back up %s to timestamped copies before dropping. Backups must be removed manually once the migration is verified.",
		strings.Join(tables, ", ")), nil
}

func (m *DropTableSafeguard) Apply(content string, file migration.File) (string, error) {
	stamp := m.now().UTC().Format("20060102150405")
	return dropTableStmtRe.ReplaceAllStringFunc(content, func(match string) string {
		sub := dropTableStmtRe.FindStringSubmatch(match)
		table := strings.Trim(sub[1], `"`)
		backup := fmt.Sprintf("CREATE TABLE %s_backup_%s AS SELECT * FROM %s;", table, stamp, table)
		return backup + "\n" + match
	}), nil
}

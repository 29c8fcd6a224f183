package risk

import (
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// LockMode represents PostgreSQL lock modes
// See: https://www.postgresql.org/docs/current/explicit-locking.html
type LockMode int

const (
	// LockAccessShare - Acquired by SELECT queries
	LockAccessShare LockMode = iota

	// LockRowExclusive - Acquired by INSERT, UPDATE, DELETE
	LockRowExclusive

	// LockShareUpdateExclusive - Acquired by CREATE INDEX CONCURRENTLY
	// Key property: Allows concurrent reads AND writes
	LockShareUpdateExclusive

	// LockShare - Acquired by CREATE INDEX (non-concurrent)
	// Blocks writes but allows reads
	LockShare

	// LockAccessExclusive - Acquired by most DDL (ALTER TABLE, DROP TABLE, etc.)
	// Blocks all reads and writes
	LockAccessExclusive
)

// String returns the PostgreSQL name of the lock mode
func (l LockMode) String() string {
	switch l {
	case LockAccessShare:
		return "ACCESS SHARE"
	case LockRowExclusive:
		return "ROW EXCLUSIVE"
	case LockShareUpdateExclusive:
		return "SHARE UPDATE EXCLUSIVE"
	case LockShare:
		return "SHARE"
	case LockAccessExclusive:
		return "ACCESS EXCLUSIVE"
	default:
		return "UNKNOWN"
	}
}

// BlocksReads returns true if this lock mode blocks SELECT queries
func (l LockMode) BlocksReads() bool {
	return l == LockAccessExclusive
}

// BlocksWrites returns true if this lock mode blocks INSERT/UPDATE/DELETE
func (l LockMode) BlocksWrites() bool {
	return l >= LockShare
}

// LockModeFor returns the lock mode a classified statement acquires on its
// target table. upper is the uppercased statement text.
func LockModeFor(op sqlparse.Operation, upper string) LockMode {
	switch op.Kind {
	case sqlparse.OpCreateIndex:
		if strings.Contains(upper, "CONCURRENTLY") {
			return LockShareUpdateExclusive
		}
		return LockShare

	case sqlparse.OpAlterTable:
		if strings.Contains(upper, "VALIDATE CONSTRAINT") {
			return LockShareUpdateExclusive
		}
		return LockAccessExclusive

	case sqlparse.OpDropTable, sqlparse.OpDropIndex:
		return LockAccessExclusive

	case sqlparse.OpCreateTable:
		// The table does not exist yet, nothing to lock.
		return LockAccessShare

	case sqlparse.OpInsert, sqlparse.OpUpdate, sqlparse.OpDelete:
		if strings.HasPrefix(upper, "TRUNCATE") {
			return LockAccessExclusive
		}
		return LockRowExclusive

	case sqlparse.OpSelect:
		return LockAccessShare

	default:
		// Assume the worst for statements the classifier cannot place.
		return LockAccessExclusive
	}
}

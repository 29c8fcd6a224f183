package risk

import (
	"strings"
	"testing"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

func TestLockModeFor(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		expectedLock LockMode
	}{
		{
			name:         "CREATE INDEX acquires SHARE",
			sql:          "CREATE INDEX idx_users_email ON users(email)",
			expectedLock: LockShare,
		},
		{
			name:         "CREATE INDEX CONCURRENTLY acquires SHARE UPDATE EXCLUSIVE",
			sql:          "CREATE INDEX CONCURRENTLY idx_users_email ON users(email)",
			expectedLock: LockShareUpdateExclusive,
		},
		{
			name:         "ALTER TABLE acquires ACCESS EXCLUSIVE",
			sql:          "ALTER TABLE users ADD COLUMN age INT",
			expectedLock: LockAccessExclusive,
		},
		{
			name:         "VALIDATE CONSTRAINT acquires SHARE UPDATE EXCLUSIVE",
			sql:          "ALTER TABLE orders VALIDATE CONSTRAINT fk_user",
			expectedLock: LockShareUpdateExclusive,
		},
		{
			name:         "DROP TABLE acquires ACCESS EXCLUSIVE",
			sql:          "DROP TABLE users",
			expectedLock: LockAccessExclusive,
		},
		{
			name:         "CREATE TABLE has nothing to lock",
			sql:          "CREATE TABLE users (id BIGINT PRIMARY KEY)",
			expectedLock: LockAccessShare,
		},
		{
			name:         "UPDATE acquires ROW EXCLUSIVE",
			sql:          "UPDATE users SET active = true WHERE id = 1",
			expectedLock: LockRowExclusive,
		},
		{
			name:         "TRUNCATE acquires ACCESS EXCLUSIVE",
			sql:          "TRUNCATE TABLE audit_log",
			expectedLock: LockAccessExclusive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := sqlparse.Classify(tt.sql, sqlparse.DialectPostgres)
			got := LockModeFor(op, strings.ToUpper(tt.sql))
			if got != tt.expectedLock {
				t.Errorf("LockModeFor() = %s, want %s", got, tt.expectedLock)
			}
		})
	}
}

func TestLockModeBlocking(t *testing.T) {
	if !LockAccessExclusive.BlocksReads() {
		t.Error("ACCESS EXCLUSIVE must block reads")
	}
	if LockShare.BlocksReads() {
		t.Error("SHARE must not block reads")
	}
	if !LockShare.BlocksWrites() {
		t.Error("SHARE must block writes")
	}
	if LockShareUpdateExclusive.BlocksWrites() {
		t.Error("SHARE UPDATE EXCLUSIVE must allow concurrent writes")
	}
}

// Package modules provides the built-in enhancement modules. Each one is a
// self-contained rewrite with its own detection, so the engine can offer
// exactly the enhancements a migration can use.
package modules

import (
	"github.com/sqlsentry/sqlsentry/internal/engine"
)

// Defaults returns every built-in module, ready to register.
func Defaults() []engine.Module {
	return []engine.Module{
		NewTransactionWrapper(),
		NewLockTimeout(DefaultLockTimeoutSeconds),
		NewDropTableSafeguard(),
		NewConcurrentIndex(),
		NewBatchedDeleteHint(),
	}
}

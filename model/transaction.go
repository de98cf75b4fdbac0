package model

// Transaction is the ambient database transaction bound to a fiber while a
// transition executes. At most one is bound to a fiber at a time. Commit
// releases the underlying handle on every path; Rollback is safe to call
// on an already released handle.
type Transaction interface {
	Commit() error
	Rollback() error
}

// DeduplicationHandler accompanies one inbound session message through a
// transition. InsideDatabaseTransaction records the receipt fact atomically
// with the transition's effects; AfterDatabaseTransaction acknowledges the
// message to the broker once the commit has succeeded.
type DeduplicationHandler interface {
	InsideDatabaseTransaction(tx Transaction) error
	AfterDatabaseTransaction() error
}

package sqlite

import "fmt"

// TransactionError reports a failed begin, commit, or rollback. The unit is
// rolled back, no partial state survives, and the operation is safe to
// retry. Callers classify it with errors.As.
type TransactionError struct {
	Op  string // "begin", "commit", or "rollback"
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("failed to %s unit of work: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

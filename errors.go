package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResource indicates the empty resource sentinel was passed to a
	// transfer operation.
	ErrEmptyResource = errors.New("transfer: resource must not be empty")
	// ErrNegativeAmount indicates a negative maximum amount.
	ErrNegativeAmount = errors.New("transfer: max amount must not be negative")
	// ErrNoTransaction indicates an operation that mutates storage state was
	// attempted without a transaction.
	ErrNoTransaction = errors.New("transfer: a transaction is required")
	// ErrClosed indicates an operation on a transaction that already
	// committed or aborted.
	ErrClosed = errors.New("transfer: transaction is closed")
	// ErrNotCurrent indicates an operation on a transaction that is open but
	// not the innermost open one.
	ErrNotCurrent = errors.New("transfer: transaction is not the innermost open transaction")
	// ErrTransactionOpen indicates an operation that requires no open
	// transaction, such as OpenRoot, was attempted while one was open on the
	// manager.
	ErrTransactionOpen = errors.New("transfer: a transaction is already open")
	// ErrManagerPoisoned indicates a previous rollback failed to restore a
	// participant; the manager refuses new transactions.
	ErrManagerPoisoned = errors.New("transfer: manager poisoned by a failed rollback")
	// ErrVersionDuringTransaction indicates Version was called while a
	// transaction was open. Version stamps are only meaningful for
	// out-of-transaction change detection.
	ErrVersionDuringTransaction = errors.New("transfer: version is not available during a transaction")
	// ErrViewInUse indicates a storage already exposes a view or iterator for
	// the given transaction.
	ErrViewInUse = errors.New("transfer: storage already exposes a view for this transaction")
)

// RollbackError reports that one or more participants could not be restored
// during an abort. The remaining participants were still restored, but the
// storages behind the failed restores are in an undefined state and the
// owning manager is poisoned. There is no well-defined recovery; callers that
// can prove isolation may discard the poisoned manager and build a new one.
type RollbackError struct {
	TxID  uint64
	Depth int
	Err   error
}

func (e *RollbackError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("transfer: rollback of transaction %d (depth %d) failed: %v", e.TxID, e.Depth, e.Err)
}

func (e *RollbackError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

package errors

import "errors"

var (
	ErrInvalidEvent        = errors.New("payment event is invalid")
	ErrUnknownParentEvent  = errors.New("parent event is not part of this transaction")
	ErrDuplicateEvent      = errors.New("payment event already recorded")
	ErrTransactionNotFound = errors.New("transaction record not found")
	ErrTransactionClosed   = errors.New("transaction is closed")
	ErrTransactionBusy     = errors.New("transaction already has an operation in flight")
	ErrTransactionRequired = errors.New("transaction is required")
	ErrStoreNotInitialized = errors.New("transaction store is not initialized")
	ErrInvalidQuery        = errors.New("transaction query is invalid")
)

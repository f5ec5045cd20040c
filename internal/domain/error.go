package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientCredit = errors.New("insufficient advance credit")
	ErrConflict           = errors.New("conflicting terminal payment state")
	ErrDuplicateEvent     = errors.New("gateway event already processed")
	ErrLockNotAcquired    = errors.New("could not acquire lock")

	// Infrastructure-level errors surfaced by repositories
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

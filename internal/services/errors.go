package services

import "errors"

// Core error taxonomy. Handlers map these to HTTP codes; nothing in the
// services layer panics on a bad request.
var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountBlocked      = errors.New("account blocked")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWithdrawalsLocked   = errors.New("withdrawals locked")

	// ErrStorageFailure means the durable write did not complete. The
	// settlement was not committed; callers may retry but should confirm
	// account state first.
	ErrStorageFailure = errors.New("storage failure")

	// ErrConcurrencyTimeout means the per-account lock was not acquired
	// within the configured bound. Retryable.
	ErrConcurrencyTimeout = errors.New("account busy, try again")

	ErrUsernameTaken      = errors.New("username taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPin           = errors.New("wrong secret pin")

	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrAlreadyResolved    = errors.New("withdrawal already handled")
)

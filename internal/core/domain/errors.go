package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Financial computation errors
var (
	// ErrInvalidPrincipal is returned for a principal that is zero, negative or non-finite
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrInvalidTerm is returned for a term length that is not a positive whole number of months
	ErrInvalidTerm = errors.New("invalid term")
	// ErrInconsistentLedger marks stored records that break a ledger invariant.
	// It is never recovered from locally.
	ErrInconsistentLedger = errors.New("inconsistent ledger")
	// ErrNegativePool is returned when outstanding principal exceeds the collected fund
	ErrNegativePool = errors.New("distributable pool is negative")
)

// Loan errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrInvalidLoanStatus     = errors.New("invalid loan status")
	ErrInvalidLoanTransition = errors.New("invalid loan status transition")
	ErrOverpayment           = errors.New("repayment exceeds outstanding balance")
)

// Member errors
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrInvalidPeriod       = errors.New("invalid period")
)

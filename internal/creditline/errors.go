package creditline

import (
	"errors"

	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

var ErrNotFound = errors.New("credit line not found")

// Validation errors: the request itself is malformed.
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrInvalidTerm      = errors.New("payment term must be between 1 and 365 days")
	ErrInvalidPartner   = errors.New("unknown partner")
	ErrInvalidCurrency  = errors.New("unsupported currency")
	ErrInvalidRate      = errors.New("interest rate must be between 0 and 100")
	ErrDecisionNoTerms  = errors.New("decision carries no terms to open a line with")
	ErrMissingUser      = errors.New("user id is required")
)

// Business rule errors: the request is well formed but not allowed in the
// line's current state.
var (
	ErrInsufficientCredit  = errors.New("insufficient credit available")
	ErrInactiveLine        = errors.New("credit line is not active")
	ErrExpired             = errors.New("credit line has expired")
	ErrOutstandingBalance  = errors.New("credit line has an outstanding balance")
	ErrDuplicateActiveLine = errors.New("user already has an open credit line with this partner")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicatePayment    = errors.New("payment with this transaction reference was already applied")
	ErrCurrencyMismatch    = errors.New("payment currency does not match the credit line")
)

// ErrConcurrentModification means the line changed between load and save.
// The service retries it; callers only see it once retries are exhausted.
var ErrConcurrentModification = errors.New("credit line was modified concurrently")

// ErrInvariantViolation aborts any mutation that would leave the line inconsistent.
var ErrInvariantViolation = errors.New("credit line invariant violated")

// Kind groups errors by who can act on them.
type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindBusiness
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusiness:
		return "business"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}

	return "infrastructure"
}

// Retryable reports whether retrying the same intent may succeed.
func (k Kind) Retryable() bool {
	return k == KindConflict
}

var kinds = map[error]Kind{
	ErrNotFound: KindNotFound,

	ErrInvalidAmount:               KindValidation,
	ErrAmountOutOfRange:            KindValidation,
	ErrInvalidTerm:                 KindValidation,
	ErrInvalidPartner:              KindValidation,
	ErrInvalidCurrency:             KindValidation,
	ErrInvalidRate:                 KindValidation,
	ErrDecisionNoTerms:             KindValidation,
	ErrMissingUser:                 KindValidation,
	underwriting.ErrInvalidRequest: KindValidation,

	ErrInsufficientCredit:  KindBusiness,
	ErrInactiveLine:        KindBusiness,
	ErrExpired:             KindBusiness,
	ErrOutstandingBalance:  KindBusiness,
	ErrDuplicateActiveLine: KindBusiness,
	ErrInvalidTransition:   KindBusiness,
	ErrDuplicatePayment:    KindBusiness,
	ErrCurrencyMismatch:    KindBusiness,

	ErrConcurrentModification: KindConflict,
}

// KindOf classifies err. Anything unrecognised, including invariant
// violations, is an infrastructure failure.
func KindOf(err error) Kind {
	for target, kind := range kinds {
		if errors.Is(err, target) {
			return kind
		}
	}

	return KindInfrastructure
}

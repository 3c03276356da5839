package models

import (
	"errors"
	"fmt"
)

// ============================================================================
// BILLING ERROR KINDS
// ============================================================================

// ErrorKind classifies a billing failure so callers can branch on the kind
// instead of matching message text. The consumer's redelivery policy keys
// off it: only transient failures are worth retrying.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindNotFound - a referenced policy, customer or invoice is missing.
	KindNotFound
	// KindValidation - bad input (inverted period, non-active policy).
	KindValidation
	// KindTransient - store, document store or transport temporarily
	// unavailable; safe to retry.
	KindTransient
	// KindPermanent - rendering or serialization failed; retrying the same
	// input will fail the same way.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// BillingError carries a kind alongside the usual wrapped cause.
type BillingError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *BillingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BillingError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(format string, args ...any) *BillingError {
	return &BillingError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) *BillingError {
	return &BillingError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewTransientError(err error, format string, args ...any) *BillingError {
	return &BillingError{Kind: KindTransient, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewPermanentError(err error, format string, args ...any) *BillingError {
	return &BillingError{Kind: KindPermanent, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from anywhere in the wrap chain; plain errors
// report KindUnknown.
func KindOf(err error) ErrorKind {
	var be *BillingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the queue layer should redeliver the message
// that caused err. Unknown kinds are not retried: a failure nobody
// classified lands in the dead-letter queue where someone will look at it.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// ErrDuplicateInvoice signals that the uniqueness constraint on
// (policy_id, period_start, period_end) rejected an insert. Callers treat it
// as "already invoiced", not as a failure.
var ErrDuplicateInvoice = errors.New("invoice already exists for policy and billing period")

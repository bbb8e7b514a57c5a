// Package services defines the business logic of the booking service:
// availability queries, order creation, the verified commit path, pricing,
// registrations and the dashboard.
//
// This file centralizes the error taxonomy. Service methods return *Error
// values carrying a Kind; translation into HTTP status codes and the
// response envelope happens in the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.
type Kind string

const (
	// KindValidation: a required field is missing or malformed.
	KindValidation Kind = "validation"
	// KindConflict: a requested slot is already taken.
	KindConflict Kind = "conflict"
	// KindVerification: the payment callback could not be authenticated.
	KindVerification Kind = "verification"
	// KindUpstream: the payment gateway refused or failed.
	KindUpstream Kind = "upstream"
	// KindStorage: the ledger, cache or document store failed.
	KindStorage Kind = "storage"
	// KindNotFound: the addressed record does not exist.
	KindNotFound Kind = "not_found"
)

// Predictable failures.
var (
	ErrDateRequired             = errors.New("Date required")
	ErrInvalidDate              = errors.New("invalid date")
	ErrAmountRequired           = errors.New("Amount missing")
	ErrInvalidAmount            = errors.New("amount must be a positive integer")
	ErrNoSlots                  = errors.New("no slots selected")
	ErrDayRequired              = errors.New("day required")
	ErrInvalidPrice             = errors.New("price must be a non-negative number")
	ErrMissingVerificationField = errors.New("missing verification field")
	ErrSignatureMismatch        = errors.New("Verification failed")
	ErrPaymentAlreadyUsed       = errors.New("payment already used")
	ErrSlotsTaken               = errors.New("Double booked!")
	ErrDayNotFound              = errors.New("day not found in pricing table")
	ErrDocumentNotFound         = errors.New("document not found")
	ErrDocumentTooLarge         = errors.New("document too large")
	ErrInvalidDocument          = errors.New("document payload is not a base64 data URL")
	ErrUnsupportedDocument      = errors.New("document must be a PNG, JPEG, GIF, WebP or PDF file")
	ErrUnknownAction            = errors.New("Invalid action")
)

// Error is a classified service failure.
type Error struct {
	Kind    Kind
	Message string
	// Slots lists the conflicting slot identifiers of a conflict.
	Slots []string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// Validation wraps err as a validation failure.
func Validation(err error) *Error { return newError(KindValidation, err) }

// Verification wraps err as a verification failure.
func Verification(err error) *Error { return newError(KindVerification, err) }

// NotFound wraps err as a not-found failure.
func NotFound(err error) *Error { return newError(KindNotFound, err) }

// Conflict reports the slots that are already taken.
func Conflict(slots []string) *Error {
	return &Error{Kind: KindConflict, Message: ErrSlotsTaken.Error(), Slots: slots, Err: ErrSlotsTaken}
}

// Upstream wraps a gateway failure with a caller-facing message.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// Storage wraps a persistence failure. op names what was being done.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf("storage error: %s", op), Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// ConflictingSlots returns the slots carried by a conflict error.
func ConflictingSlots(err error) []string {
	var se *Error
	if errors.As(err, &se) {
		return se.Slots
	}
	return nil
}

// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` and `failErr()` helpers in this package). These
// codes give clients a stable, machine-readable taxonomy next to the
// human-readable message of the envelope.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, not_found, too_many_requests) mirror HTTP
//     status semantics.
//   - Booking codes (conflict, verification_failed, upstream_error,
//     storage_error) mirror the service error kinds one to one.
//
// Example response:
//
//	{
//	  "status": "error",
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "Double booked!",
//	  "conflicts": ["09 AM - 10 AM"]
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"

	// Booking:
	ErrCodeValidation    = "validation_error"
	ErrCodeUnknownAction = "unknown_action"
	ErrCodeConflict      = "conflict"
	ErrCodeVerification  = "verification_failed"
	ErrCodeUpstream      = "upstream_error"
	ErrCodeStorage       = "storage_error"
)

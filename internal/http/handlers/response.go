// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities used across all endpoints. Every
// JSON body carries a top-level "status" of "success" or "error", so browser
// checkouts can branch on one field regardless of the operation.
//
// Conventions:
//   - Error responses are ErrorResponse values with a stable `code`.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with the request-scoped logger.
//   - `failErr()` translates service errors into status and code.
//   - `ok()` stamps "status":"success" onto a success body.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "status": "error",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "conflict",
//	  "message": "Double booked!",
//	  "conflicts": ["09 AM - 10 AM"]
//	}
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "status": "success", "bookedSlots": ["06 PM - 07 PM"] }
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-turf-booking/internal/http/middleware"
	"github.com/tbourn/go-turf-booking/internal/services"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Always "error"
	Status string `json:"status" example:"error"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"conflict"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Double booked!"`
	// Slots that are already taken, on conflicts only
	Conflicts []string `json:"conflicts,omitempty" example:"09 AM - 10 AM"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.Status = statusError
	resp.RequestID = middleware.RequestIDFrom(c)

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr renders a service error. Errors without a kind become a 500 whose
// message does not leak internals.
func failErr(c *gin.Context, err error) {
	resp := ErrorResponse{Message: err.Error()}
	var se *services.Error
	if errors.As(err, &se) {
		resp.Message = se.Message
	}

	var status int
	switch services.KindOf(err) {
	case services.KindValidation:
		status, resp.Code = http.StatusBadRequest, ErrCodeValidation
		if errors.Is(err, services.ErrUnknownAction) {
			resp.Code = ErrCodeUnknownAction
		}
	case services.KindConflict:
		status, resp.Code = http.StatusConflict, ErrCodeConflict
		resp.Conflicts = services.ConflictingSlots(err)
	case services.KindVerification:
		status, resp.Code = http.StatusUnauthorized, ErrCodeVerification
	case services.KindUpstream:
		status, resp.Code = http.StatusBadGateway, ErrCodeUpstream
	case services.KindStorage:
		status, resp.Code = http.StatusServiceUnavailable, ErrCodeStorage
	case services.KindNotFound:
		status, resp.Code = http.StatusNotFound, ErrCodeNotFound
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unclassified error")
		status, resp.Code, resp.Message = http.StatusInternalServerError, ErrCodeInternal, "internal server error"
	}
	if status >= http.StatusInternalServerError && se != nil && se.Err != nil {
		middleware.LoggerFrom(c).Error().Err(se.Err).Str("kind", string(se.Kind)).Msg("service failure")
	}
	failWith(c, status, resp)
}

// ok writes a success JSON response with "status":"success" added to body.
func ok(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = statusSuccess
	c.JSON(status, body)
}

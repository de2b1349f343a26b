package dto

import (
	"net/http"

	"github.com/erp/ledger/internal/domain/ledger"
)

// Error codes returned in the response envelope.
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Ledger rule error codes
const (
	// ErrCodeTerminalState rejects allocations against a Cancelled or Waived receipt
	ErrCodeTerminalState = "ERR_TERMINAL_STATE"
	// ErrCodeInvalidState is an operation the payment or receipt state forbids
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodePartialApplication means a rollback could not undo every allocation;
	// the body lists per receipt what stayed committed
	ErrCodePartialApplication = "ERR_PARTIAL_APPLICATION"
)

// Input and request handling error codes
const (
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeIdempotencyReuse = "ERR_IDEMPOTENCY_KEY_REUSED"
	ErrCodeIdempotencyBusy  = "ERR_IDEMPOTENCY_IN_FLIGHT"
	ErrCodeRateLimited      = "ERR_RATE_LIMITED"
	ErrCodeUnavailable      = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeTerminalState:      http.StatusUnprocessableEntity,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodePartialApplication: http.StatusInternalServerError,

	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeIdempotencyReuse: http.StatusUnprocessableEntity,
	ErrCodeIdempotencyBusy:  http.StatusConflict,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodeMapping translates ledger domain codes to envelope codes
var domainErrorCodeMapping = map[string]string{
	ledger.CodeValidation:          ErrCodeValidation,
	ledger.CodeNotFound:            ErrCodeNotFound,
	ledger.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
	ledger.CodeTerminalState:       ErrCodeTerminalState,
	ledger.CodePartialApplication:  ErrCodePartialApplication,
	ledger.CodeInvalidState:        ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to the envelope format.
// Codes already in that format, or unknown ones, are returned unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := domainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
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
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeDuplicateSubmission = "ERR_DUPLICATE_SUBMISSION"
)

// Numbering error codes. Scope races and lock timeouts surviving the
// allocator's internal retries surface here.
const (
	ErrCodeNumberingConflict  = "ERR_NUMBERING_CONFLICT"
	ErrCodeNumberingTimeout   = "ERR_NUMBERING_TIMEOUT"
	ErrCodeStorageUnavailable = "ERR_STORAGE_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeDuplicateSubmission: http.StatusConflict,

	ErrCodeNumberingConflict:  http.StatusConflict,
	ErrCodeNumberingTimeout:   http.StatusServiceUnavailable,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"DUPLICATE_SUBMISSION":   ErrCodeDuplicateSubmission,
	"SCOPE_RACE":             ErrCodeNumberingConflict,
	"LOCK_TIMEOUT":           ErrCodeNumberingTimeout,
	"STORE_UNAVAILABLE":      ErrCodeStorageUnavailable,
	"INVALID_TENANT":         ErrCodeInvalidInput,
	"INVALID_OWNER":          ErrCodeInvalidInput,
	"INVALID_OWNER_KIND":     ErrCodeInvalidInput,
	"INVALID_VOUCHER_KIND":   ErrCodeInvalidInput,
	"INVALID_VOUCHER_DATE":   ErrCodeInvalidInput,
	"INVALID_FISCAL_YEAR":    ErrCodeInvalidInput,
	"INVALID_FISCAL_MONTH":   ErrCodeInvalidInput,
	"INVALID_PARTY_NAME":     ErrCodeInvalidInput,
	"INVALID_AMOUNT":         ErrCodeInvalidInput,
	"INVALID_CANCEL_REASON":  ErrCodeInvalidInput,
	"INVALID_USER":           ErrCodeInvalidInput,
	"INVALID_VOUCHER_NUMBER": ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

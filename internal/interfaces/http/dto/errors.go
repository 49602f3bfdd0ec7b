package dto

import "net/http"

// Error code constants, format ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Authentication error codes
const (
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeForbidden       = "ERR_FORBIDDEN"
	ErrCodeTenantSuspended = "ERR_TENANT_SUSPENDED"
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
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
)

// Upstream toolkit error codes
const (
	ErrCodeSigningFailed      = "ERR_SIGNING_FAILED"
	ErrCodeTransmissionFailed = "ERR_TRANSMISSION_FAILED"
)

// Availability error codes
const (
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeTenantSuspended: http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition: http.StatusUnprocessableEntity,

	ErrCodeSigningFailed:      http.StatusBadGateway,
	ErrCodeTransmissionFailed: http.StatusBadGateway,

	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting
// to 500 for codes it does not know
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"TENANT_NOT_FOUND":   ErrCodeNotFound,
	"ISSUER_NOT_FOUND":   ErrCodeNotFound,
	"INVOICE_NOT_FOUND":  ErrCodeNotFound,
	"ALREADY_EXISTS":     ErrCodeAlreadyExists,
	"NAME_EXISTS":        ErrCodeAlreadyExists,
	"CNPJ_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":      ErrCodeBadRequest,
	"INVALID_TENANT":     ErrCodeBadRequest,
	"INVALID_CNPJ":       ErrCodeBadRequest,
	"INVALID_CRT":        ErrCodeBadRequest,
	"INVALID_NAME":       ErrCodeBadRequest,
	"INVALID_SERIES":     ErrCodeBadRequest,
	"INVALID_NUMBER":     ErrCodeBadRequest,
	"INVALID_ACCESS_KEY": ErrCodeBadRequest,

	"INVALID_STATE":      ErrCodeInvalidState,
	"INVALID_TRANSITION": ErrCodeInvalidTransition,

	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"TENANT_SUSPENDED":     ErrCodeTenantSuspended,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,

	"SIGNING_FAILED":      ErrCodeSigningFailed,
	"TRANSMISSION_FAILED": ErrCodeTransmissionFailed,

	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

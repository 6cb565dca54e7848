package errors

import "net/http"

// Code is the machine-readable error class sent to clients.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeStorage      Code = "STORAGE_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Metadata decides how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// DetailsAllowed lets the error's details reach the client.
	DetailsAllowed bool
	// MessageAllowed exposes the error's own message instead of PublicMessage.
	MessageAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, MessageAllowed: true},
	CodeUnauthorized: {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", MessageAllowed: true},
	CodeForbidden:    {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied", MessageAllowed: true},
	CodeNotFound:     {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", MessageAllowed: true},
	CodeConflict:     {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", DetailsAllowed: true, MessageAllowed: true},
	CodeRateLimit:    {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeStorage:      {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "storage operation failed", DetailsAllowed: true, MessageAllowed: true},
	CodeInternal:     {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:   {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
}

// MetadataFor falls back to the internal error entry for unknown codes.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

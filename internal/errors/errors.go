// Package errors builds the gofulmen error envelopes returned by the HTTP
// API and maps them to status codes.
package errors

import (
	"context"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/formguard/formguard/internal/server/middleware"
)

// Error codes returned by the API.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodeSpamRejected     = "SPAM_REJECTED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeStore            = "STORE_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeConfigInvalid    = "CONFIG_INVALID"
)

var statusByCode = map[string]int{
	CodeInvalidInput:     http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeConflict:         http.StatusConflict,
	CodeSpamRejected:     http.StatusUnprocessableEntity,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeInternal:         http.StatusInternalServerError,
	CodeStore:            http.StatusInternalServerError,
	CodeExternalService:  http.StatusBadGateway,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeUnavailable:      http.StatusServiceUnavailable,
	CodeConfigInvalid:    http.StatusInternalServerError,
}

// HTTPStatusFromCode maps an error code to its HTTP status. Unknown codes
// are internal errors.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewConflictError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConflict, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

func NewExternalServiceError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeExternalService, message)
}

func NewUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnavailable, message)
}

// NewSpamRejectedError reports a gatekeeper rejection. The message is the
// banner text shown to the visitor. A non-empty stage goes in the details.
func NewSpamRejectedError(message, stage string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeSpamRejected, message)
	if stage == "" {
		return envelope
	}
	return envelope.WithDetails(map[string]interface{}{"stage": stage})
}

// NewRateLimitedError reports a client over its submission allowance.
func NewRateLimitedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeRateLimited, message).
		WithDetails(map[string]interface{}{"stage": "rate_limit"})
}

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

func WrapStoreError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeStore, err, message)
}

func WrapExternalService(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeExternalService, err, message)
}

// wrap tags the envelope with the request ID and keeps err's text in the
// log-only context.
func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestID(ctx)
	if id == "" {
		id = uuid.New().String()
	}
	envelope := errors.NewErrorEnvelope(code, message).WithCorrelationID(id).WithTraceID(id)
	if err == nil {
		return envelope
	}
	if withCause, ctxErr := envelope.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); ctxErr == nil {
		return withCause
	}
	return envelope
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return middleware.GetRequestID(ctx)
}

// EnsureEnvelope turns any error into an envelope. Plain errors become
// INTERNAL_ERROR with the original text kept out of the response.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	if err == nil {
		envelope, _ := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error").
			WithSeverity(errors.SeverityCritical)
		return envelope
	}

	envelope := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	if withCause, ctxErr := envelope.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); ctxErr == nil {
		envelope = withCause
	}
	if severe, sevErr := envelope.WithSeverity(errors.SeverityHigh); sevErr == nil {
		envelope = severe
	}
	return envelope
}

package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeRateLimit        ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	CodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeFeatureDisabled  ErrorCode = "FEATURE_DISABLED"
)

// Domain kinds that do not belong to the schema error family.
const (
	KindInferenceUnavailable = "InferenceUnavailable"
	KindInferenceUnreachable = "InferenceUnreachable"
	KindTransformUnreachable = "TransformUnreachable"
	KindModelNotLoaded       = "ModelNotLoaded"
	KindModelNotFound        = "ModelNotFound"
	KindModelInvalid         = "ModelInvalid"
	KindBatchTooLarge        = "BatchTooLarge"
	KindPayloadTooLarge      = "PayloadTooLarge"
	KindDecodeFailed         = "DecodeFailed"
)

type AppError struct {
	Code       ErrorCode      `json:"code"`
	Kind       string         `json:"kind,omitempty"`
	Message    string         `json:"message"`
	Details    string         `json:"details,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	StatusCode int            `json:"-"`
	Cause      error          `json:"-"`
	Timestamp  time.Time      `json:"timestamp"`
	RequestID  string         `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Cause:      err,
		Timestamp:  time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

func ServiceUnavailable(message string) *AppError {
	return New(CodeServiceUnavail, message)
}

func FeatureDisabled(message string) *AppError {
	return New(CodeFeatureDisabled, message)
}

// As and Is let callers that import this package as "errors" keep using
// the standard helpers.
func As(err error, target any) bool { return stderrors.As(err, target) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func getStatusCode(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound, CodeFeatureDisabled:
		return http.StatusNotFound
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeServiceUnavail, CodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// domainError is satisfied by the typed errors of the pipeline packages.
type domainError interface {
	error
	Kind() string
	Meta() map[string]any
}

// FromDomain converts a pipeline error into the HTTP envelope. Errors that
// are already an *AppError are returned unchanged; anything unrecognised
// becomes an internal error.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		e := Wrap(err, CodePayloadTooLarge,
			fmt.Sprintf("Request body exceeds the limit of %d bytes", maxBytes.Limit))
		e.Kind = KindPayloadTooLarge
		e.Meta = map[string]any{"limit_bytes": maxBytes.Limit}
		return e
	}

	var de domainError
	if !stderrors.As(err, &de) {
		return InternalWrap(err, "An unexpected error occurred")
	}

	e := Wrap(err, codeForKind(de.Kind()), de.Error())
	e.Kind = de.Kind()
	e.Meta = de.Meta()
	return e
}

func codeForKind(kind string) ErrorCode {
	switch kind {
	case KindInferenceUnavailable, KindInferenceUnreachable, KindTransformUnreachable:
		return CodeServiceUnavail
	case KindModelNotLoaded, KindModelNotFound, KindModelInvalid:
		return CodeModelUnavailable
	case KindPayloadTooLarge:
		return CodePayloadTooLarge
	case KindDecodeFailed:
		return CodeBadRequest
	default:
		// schema errors and the batch row cap
		return CodeValidation
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := FromDomain(err)
	appErr.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := ErrorResponse{
		Error:   appErr,
		Success: false,
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	logLevel := slog.LevelError
	if appErr.StatusCode < 500 {
		logLevel = slog.LevelWarn
	}

	logger.Log(context.Background(), logLevel, "request failed",
		"error_code", appErr.Code,
		"error_kind", appErr.Kind,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{
		Data:    data,
		Success: true,
	})
}

// WriteJSON writes v without the success envelope. It serves the inference
// wire shapes, which clients decode directly.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

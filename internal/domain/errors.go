package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"

	// Pipeline errors
	CodeArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"
	CodeFetchFailed      ErrorCode = "FETCH_FAILED"
	CodeGenerationFailed ErrorCode = "GENERATION_FAILED"

	// Field validation codes
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"
)

// Failure reasons carried in DomainError.Context["reason"].
const (
	ReasonTimeout           = "timeout"
	ReasonNetwork           = "network"
	ReasonStatus            = "status"
	ReasonTooLarge          = "too_large"
	ReasonBackend           = "backend"
	ReasonMalformedResponse = "malformed_response"
)

// ErrDuplicateKey is returned by a repository when an insert hits the unique
// reference key. The store resolves it; callers never see it.
var ErrDuplicateKey = errors.New("artifact with this url already exists")

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Err     error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// Reason returns Context["reason"] or "".
func (e *DomainError) Reason() string {
	if r, ok := e.Context["reason"].(string); ok {
		return r
	}
	return ""
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithContext attaches a detail to the error and returns it.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewArtifactNotFoundError(id int64) *DomainError {
	return NewError(CodeArtifactNotFound, fmt.Sprintf("Quiz entry not found with ID: %d", id), nil).
		WithContext("id", id)
}

// NewFetchTimeoutError reports that the article source did not answer in time.
func NewFetchTimeoutError(url string, err error) *DomainError {
	return NewError(CodeFetchFailed, "Timed out fetching URL", err).
		WithContext("url", url).
		WithContext("reason", ReasonTimeout)
}

// NewFetchNetworkError reports a transport failure talking to the article source.
func NewFetchNetworkError(url string, err error) *DomainError {
	return NewError(CodeFetchFailed, "Failed to fetch URL", err).
		WithContext("url", url).
		WithContext("reason", ReasonNetwork)
}

// NewFetchStatusError reports a non-2xx answer from the article source.
func NewFetchStatusError(url string, status int) *DomainError {
	return NewError(CodeFetchFailed, fmt.Sprintf("URL returned HTTP status %d", status), nil).
		WithContext("url", url).
		WithContext("reason", ReasonStatus).
		WithContext("status", status)
}

// NewFetchTooLargeError reports a body longer than the configured cap.
func NewFetchTooLargeError(url string, maxBytes int64) *DomainError {
	return NewError(CodeFetchFailed, fmt.Sprintf("URL body exceeds %d bytes", maxBytes), nil).
		WithContext("url", url).
		WithContext("reason", ReasonTooLarge).
		WithContext("max_bytes", maxBytes)
}

// NewGenerationError reports a failed call to the generation backend.
func NewGenerationError(reason string, err error) *DomainError {
	return NewError(CodeGenerationFailed, "LLM generation failed", err).
		WithContext("reason", reason)
}

// IsFetchError reports whether err is (or wraps) a fetch failure.
func IsFetchError(err error) bool {
	return hasCode(err, CodeFetchFailed)
}

// IsGenerationError reports whether err is (or wraps) a generation failure.
func IsGenerationError(err error) bool {
	return hasCode(err, CodeGenerationFailed)
}

// IsNotFound reports whether err is a not-found error of any kind.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound) || hasCode(err, CodeArtifactNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// FieldError is one failed request field check.
type FieldError struct {
	Code    ErrorCode   `json:"code"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors collects field errors; it is returned as a single error.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) FieldError {
	return FieldError{Code: CodeMissingField, Field: field, Message: "field is required"}
}

func NewInvalidFormatError(field string, value interface{}) FieldError {
	return FieldError{Code: CodeInvalidFormat, Field: field, Message: "field has an invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) FieldError {
	return FieldError{
		Code:    CodeOutOfRange,
		Field:   field,
		Message: fmt.Sprintf("value must be between %d and %d", min, max),
		Value:   value,
	}
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Failure kinds surfaced by the HTTP client wrapper.
var (
	// ErrNetwork means no response was received from the backend
	ErrNetwork = errors.New("network error")
	// ErrAuth means the backend rejected the credentials or bearer token (401)
	ErrAuth = errors.New("authentication failed")
	// ErrValidation means the backend rejected the request payload (4xx)
	ErrValidation = errors.New("validation failed")
	// ErrServer means the backend failed to process the request (5xx)
	ErrServer = errors.New("server error")
)

// ErrInvalidConfig means a client was constructed with unusable settings
var ErrInvalidConfig = errors.New("invalid configuration")

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int               // HTTP status code
	Message string            // Backend "error" message, or the status text
	Fields  map[string]string // Field level messages when the backend returns them
	Kind    error             // One of ErrAuth, ErrValidation, ErrServer
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d): %s", e.Kind, e.Status, e.Message)
	for field, msg := range e.Fields {
		fmt.Fprintf(&b, "; %s: %s", field, msg)
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// NewAPIError classifies an HTTP status code into one of the failure kinds.
func NewAPIError(status int, message string, fields map[string]string) *APIError {
	if message == "" {
		message = strings.ToLower(http.StatusText(status))
	}
	return &APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
		Kind:    KindForStatus(status),
	}
}

// KindForStatus maps a non-2xx status to its failure kind.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuth
	case status >= 400 && status < 500:
		return ErrValidation
	default:
		return ErrServer
	}
}

// FieldErrors are local validation failures keyed by field name. They match ErrValidation.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

// NetworkError wraps a transport failure
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNetwork, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// StatusCode returns the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

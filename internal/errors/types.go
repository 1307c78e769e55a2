// Package errors defines the structured error type used across folio's build
// pipelines together with a small collector for per-file failures.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
)

// Common error codes.
const (
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeConfigRead       = "ERR_CONFIG_READ"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeSpriteFailed     = "ERR_SPRITE_FAILED"
	ErrCodeTemplateFailed   = "ERR_TEMPLATE_FAILED"
	ErrCodeStylesheet       = "ERR_STYLESHEET_FAILED"
	ErrCodeServerStart      = "ERR_SERVER_START"
	ErrCodeWatcher          = "ERR_WATCHER"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// FolioError is a structured error type with context.
type FolioError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *FolioError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, e.Component+":")
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += ": " + e.Cause.Error()
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *FolioError) Unwrap() error {
	return e.Cause
}

// Is matches another FolioError with the same type and code.
func (e *FolioError) Is(target error) bool {
	var t *FolioError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *FolioError) WithContext(key string, value interface{}) *FolioError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the source file the error belongs to.
func (e *FolioError) WithFile(path string) *FolioError {
	e.FilePath = path

	return e
}

// WithComponent adds component context.
func (e *FolioError) WithComponent(component string) *FolioError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *FolioError {
	return &FolioError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewBuildError creates a build error. Build errors never stop the process.
func NewBuildError(code, message string, cause error) *FolioError {
	return &FolioError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *FolioError {
	return &FolioError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *FolioError {
	return &FolioError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *FolioError {
	return &FolioError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var fe *FolioError
	if errors.As(err, &fe) {
		return fe.Recoverable
	}

	return false
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	return hasType(err, ErrorTypeBuild)
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

func hasType(err error, t ErrorType) bool {
	var fe *FolioError
	if errors.As(err, &fe) {
		return fe.Type == t
	}

	return false
}

// Collector gathers the per-file failures of one pipeline run. It is safe
// for concurrent use.
type Collector struct {
	mu     sync.Mutex
	errors []error
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records err. Nil errors are ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errors = append(c.errors, err)
	c.mu.Unlock()
}

// HasErrors reports whether anything was recorded.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.errors) > 0
}

// Errors returns a copy of the recorded errors.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]error, len(c.errors))
	copy(out, c.errors)

	return out
}

// Err joins the recorded errors, or returns nil.
func (c *Collector) Err() error {
	return errors.Join(c.Errors()...)
}

package common

import (
	"fmt"
	"strings"
)

// ConfigurationError indicates missing or invalid settings detected at startup.
// It collects every problem so the host sees them all at once.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Add records a problem.
func (e *ConfigurationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// ErrOrNil returns e if at least one problem was recorded, nil otherwise.
func (e *ConfigurationError) ErrOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// TransportError indicates a failed delivery call to the messaging endpoint.
// Either StatusCode is set (the endpoint answered with something other than 200)
// or Err holds the network-level failure.
type TransportError struct {
	StatusCode  int
	Description string
	Err         error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send failed: %v", e.Err)
	}
	if e.Description != "" {
		return fmt.Sprintf("send failed with http code %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("send failed with http code %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewStatusError creates a TransportError for a non-200 response.
func NewStatusError(statusCode int, description string) *TransportError {
	return &TransportError{StatusCode: statusCode, Description: description}
}

// NewNetworkError creates a TransportError wrapping an I/O failure.
func NewNetworkError(err error) *TransportError {
	return &TransportError{Err: err}
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

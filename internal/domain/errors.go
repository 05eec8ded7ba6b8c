package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration")
	ErrTransport     = errors.New("transport")
	ErrValidation    = errors.New("validation")
	ErrNotFound      = errors.New("not_found")
)

// ConfigurationError reports a missing or unusable setting. It is returned
// at first use of the component that needs the setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func NewConfigurationError(setting, reason string) error {
	return &ConfigurationError{Setting: setting, Reason: reason}
}

// TransportError wraps a failure of an external provider (database, image
// host, email API or SMTP relay).
type TransportError struct {
	Provider string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func NewTransportError(provider, op string, err error) error {
	return &TransportError{Provider: provider, Op: op, Err: err}
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

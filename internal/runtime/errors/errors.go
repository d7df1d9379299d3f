package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrStoreNotRegistered = sterrors.New("fedstore: store is not registered")
	ErrModuleNameRequired = sterrors.New("fedstore: module name is required")
	ErrReducerRequired    = sterrors.New("fedstore: reducer is required")
	ErrContainerRequired  = sterrors.New("fedstore: container is required")
	ErrDispatchInReducer  = sterrors.New("fedstore: reducers may not dispatch actions")
	ErrActionTypeRequired = sterrors.New("fedstore: action type is required")
	ErrLoggerRequired     = sterrors.New("fedstore: logger is required")
	ErrPublisherRequired  = sterrors.New("fedstore: publisher is required")
	ErrTopicRequired      = sterrors.New("fedstore: topic is required")
	ErrConfigRequired     = sterrors.New("fedstore: configuration is required")
)

// ConfigurationError reports an operation that targeted a module whose store
// was never registered. It is logged through the audit chain and returned.
type ConfigurationError struct {
	Module string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("fedstore: store for %q is not registered", e.Module)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps ErrStoreNotRegistered for the given module.
func NewConfigurationError(module string) *ConfigurationError {
	return &ConfigurationError{Module: module, Err: ErrStoreNotRegistered}
}

// SubscriptionError is returned when a strict subscription targets a module
// that has not been registered yet.
type SubscriptionError struct {
	Source string
	Module string
	Err    error
}

func (e *SubscriptionError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("fedstore: store for %s hasn't been registered", e.Module)
	}
	return fmt.Sprintf("fedstore: %s is trying to subscribe to partner %s. Either %s doesn't exist or hasn't been loaded yet", e.Source, e.Module, e.Module)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// NewSubscriptionError wraps ErrStoreNotRegistered for a strict subscription.
func NewSubscriptionError(source, module string) *SubscriptionError {
	return &SubscriptionError{Source: source, Module: module, Err: ErrStoreNotRegistered}
}

// ConfigValidationError wraps the joined validation failures of a Config.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "fedstore: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

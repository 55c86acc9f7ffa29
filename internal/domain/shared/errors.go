package shared

import "fmt"

// DomainError carries the message shared by the engine's typed errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// ValidationError rejects a descriptor or config field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// HookError wraps a failure raised by an external collaborator callback.
// Panics recovered from hooks are converted into this type as well.
type HookError struct {
	*DomainError
	Hook      string
	Recovered interface{}
	Cause     error
}

func NewHookError(hook string, cause error) *HookError {
	return &HookError{
		DomainError: &DomainError{Message: fmt.Sprintf("hook %s failed: %v", hook, cause)},
		Hook:        hook,
		Cause:       cause,
	}
}

func NewHookPanicError(hook string, recovered interface{}) *HookError {
	return &HookError{
		DomainError: &DomainError{Message: fmt.Sprintf("hook %s panicked: %v", hook, recovered)},
		Hook:        hook,
		Recovered:   recovered,
	}
}

func (e *HookError) Unwrap() error {
	return e.Cause
}

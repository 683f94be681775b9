// Package exception provides the error types shared by the ridership pipeline.
// Every failure is a BatchError carrying the module it came from and whether
// a later re-run can be expected to succeed.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// errorRegistry maps kind names to sentinel errors so that callers can classify
// failures with errors.Is by name (used by the CLI to pick exit codes).
var errorRegistry = make(map[string]error)

var registryMutex sync.RWMutex

// RegisterErrorType registers a sentinel under the given kind name.
// It panics on an empty name or a nil prototype.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether name has a registered sentinel.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error type returned by pipeline components.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "normalize", "predict", "reconcile").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped error. For pipeline kinds it joins the kind sentinel.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is the stack at construction time (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error returns "[module] message: original".
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err is, or wraps, a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsTemporary reports whether a later re-run may succeed without operator action.
func IsTemporary(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	return false
}

// ExtractErrorMessage returns the BatchError message, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

// IsErrorOfType reports whether err matches the sentinel registered under name.
func IsErrorOfType(err error, name string) bool {
	if err == nil {
		return false
	}
	registryMutex.RLock()
	target, ok := errorRegistry[name]
	registryMutex.RUnlock()
	return ok && errors.Is(err, target)
}

// RegisteredKinds lists the registered kind names in sorted order.
func RegisteredKinds() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	names := make([]string, 0, len(errorRegistry))
	for name := range errorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package exception

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind names of pipeline failures.
const (
	SchemaErrorKind         = "SchemaError"
	DataErrorKind           = "DataError"
	EncodingErrorKind       = "EncodingError"
	ModelInputErrorKind     = "ModelInputError"
	PersistenceConflictKind = "PersistenceConflict"
	ValidationErrorKind     = "ValidationError"
)

var (
	// ErrSchema: a required input column is missing or unrecognized.
	ErrSchema = errors.New(SchemaErrorKind)
	// ErrData: input is well formed but empty or insufficient for the target date.
	ErrData = errors.New(DataErrorKind)
	// ErrEncoding: labels unseen at training time were dropped.
	ErrEncoding = errors.New(EncodingErrorKind)
	// ErrModelInput: artifacts or the feature contract could not be resolved.
	ErrModelInput = errors.New(ModelInputErrorKind)
	// ErrPersistenceConflict: the target date already has persisted predictions.
	ErrPersistenceConflict = errors.New(PersistenceConflictKind)
	// ErrValidation: prediction tables failed column or type validation.
	ErrValidation = errors.New(ValidationErrorKind)
)

func init() {
	RegisterErrorType(SchemaErrorKind, ErrSchema)
	RegisterErrorType(DataErrorKind, ErrData)
	RegisterErrorType(EncodingErrorKind, ErrEncoding)
	RegisterErrorType(ModelInputErrorKind, ErrModelInput)
	RegisterErrorType(PersistenceConflictKind, ErrPersistenceConflict)
	RegisterErrorType(ValidationErrorKind, ErrValidation)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
}

func withKind(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return errors.Join(kind, cause)
}

// NewSchemaError reports missing required columns. The column list is part of the message.
func NewSchemaError(module, table string, missing []string) *BatchError {
	msg := fmt.Sprintf("table %q is missing required columns [%s]", table, strings.Join(missing, ", "))
	return NewBatchError(module, msg, ErrSchema, false, false)
}

// NewDataError reports empty or insufficient input. It is retryable: the usual cause
// is acquisition lag for the target date.
func NewDataError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, withKind(ErrData, cause), false, true)
}

// NewEncodingError describes dropped unseen labels. It is never returned by the encoder;
// it is carried in warnings and in step results.
func NewEncodingError(module, message string) *BatchError {
	return NewBatchError(module, message, ErrEncoding, true, false)
}

// NewModelInputError reports an artifact or feature-contract failure. Fatal for the run.
func NewModelInputError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, withKind(ErrModelInput, cause), false, false)
}

// NewPersistenceConflict reports that the date is already persisted. Callers treat it as a skip.
func NewPersistenceConflict(module, date string, existing int64) *BatchError {
	msg := fmt.Sprintf("predictions for %s already persisted (%d rows)", date, existing)
	return NewBatchError(module, msg, ErrPersistenceConflict, true, false)
}

// NewValidationError reports invalid prediction tables.
func NewValidationError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, withKind(ErrValidation, cause), false, false)
}

// IsPersistenceConflict reports whether err is a persistence conflict.
func IsPersistenceConflict(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}

// KindOf returns the pipeline kind name of err, or "" when err is not a pipeline error.
func KindOf(err error) string {
	for _, kind := range []string{
		SchemaErrorKind, DataErrorKind, EncodingErrorKind,
		ModelInputErrorKind, PersistenceConflictKind, ValidationErrorKind,
	} {
		if IsErrorOfType(err, kind) {
			return kind
		}
	}
	return ""
}

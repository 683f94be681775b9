package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("db", "failed to connect", originalErr, false, true)

	assert.Equal(t, "db", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Equal(t, "[db] failed to connect: db connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestSchemaError_NamesMissingColumns(t *testing.T) {
	err := exception.NewSchemaError("normalize", "ridership", []string{"date", "station_name"})

	assert.True(t, errors.Is(err, exception.ErrSchema))
	assert.Contains(t, err.Error(), "[date, station_name]")
	assert.False(t, err.IsRetryable())
	assert.Equal(t, exception.SchemaErrorKind, exception.KindOf(err))
}

func TestDataError_IsRetryableAndKeepsCause(t *testing.T) {
	cause := errors.New("no weather rows")
	err := exception.NewDataError("feature", "no coverage for 2024-05-02", cause)

	assert.True(t, exception.IsTemporary(err))
	assert.True(t, errors.Is(err, exception.ErrData))
	assert.True(t, errors.Is(err, cause))
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	inner := exception.NewModelInputError("predict", "feature contract not found", nil)
	wrapped := fmt.Errorf("predict step: %w", inner)

	assert.Equal(t, exception.ModelInputErrorKind, exception.KindOf(wrapped))
	assert.True(t, exception.IsBatchError(wrapped))
	assert.Equal(t, "feature contract not found", exception.ExtractErrorMessage(wrapped))
	assert.Equal(t, "", exception.KindOf(errors.New("plain")))
}

func TestPersistenceConflict_IsSoft(t *testing.T) {
	err := exception.NewPersistenceConflict("reconcile", "2024-05-02", 8)

	assert.True(t, exception.IsPersistenceConflict(err))
	assert.True(t, err.IsSkippable())
	assert.Contains(t, err.Error(), "2024-05-02")
}

func TestRegisteredKinds(t *testing.T) {
	kinds := exception.RegisteredKinds()
	for _, k := range []string{"SchemaError", "DataError", "ValidationError", "context.Canceled"} {
		assert.Contains(t, kinds, k)
	}
	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x")) })
}

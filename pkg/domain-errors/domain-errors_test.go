package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeDuplicateRequest, "request already pending")
	assert.True(t, HasCode(err, CodeDuplicateRequest))
	assert.False(t, HasCode(err, CodeAlreadyGranted))
	assert.False(t, HasCode(errors.New("plain"), CodeDuplicateRequest))
	assert.False(t, HasCode(nil, CodeDuplicateRequest))
}

func TestWrapPreservesDomainCode(t *testing.T) {
	inner := New(CodeAccessDenied, "consent expired")
	wrapped := Wrap(inner, CodeInternal, "visibility check failed")

	assert.True(t, HasCode(wrapped, CodeAccessDenied), "original code must survive wrapping")
	assert.True(t, errors.Is(wrapped, inner.(*Error)))
}

func TestWrapInfrastructureError(t *testing.T) {
	inner := errors.New("disk full")
	wrapped := Wrap(inner, CodeInternal, "could not persist consent")

	require.True(t, HasCode(wrapped, CodeInternal))
	assert.ErrorIs(t, wrapped, inner)
}

func TestErrorMessageFallsBackToCode(t *testing.T) {
	e := &Error{Code: CodeInvalidState}
	assert.Equal(t, "invalid_state", e.Error())

	e.Message = "request already approved"
	assert.Equal(t, "request already approved", e.Error())
}

func TestWrappedChainFormatting(t *testing.T) {
	inner := errors.New("leveldb: closed")
	wrapped := Wrap(fmt.Errorf("ledger append: %w", inner), CodeInternal, "provenance write failed")
	assert.ErrorIs(t, wrapped, inner)
}

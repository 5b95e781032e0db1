package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NotFound("scan not found")
		assert.Equal(t, "scan not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("boom")
		err := Wrap(cause, ErrCodeInternal, "lookup failed")
		assert.Equal(t, "lookup failed: boom", err.Error())
	})
}

func TestWrap_NilCause(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	require.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, ErrCodeEngine, "engine call failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NotFound("x"), IsNotFound},
		{"capacity", CapacityExceededf("limit %d reached", 10), IsCapacityExceeded},
		{"unavailable", Unavailable("engine down"), IsUnavailable},
		{"validation", Validation("bad input"), IsValidation},
		{"conflict", Conflict("still running"), IsConflict},
		{"engine", Engine("probe crashed"), IsEngine},
		{"internal", Internal("oops"), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(stderrors.New("plain")))
		})
	}
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	inner := NotFound("scan abc not found")
	outer := fmt.Errorf("get status: %w", inner)

	assert.True(t, IsNotFound(outer))
	assert.Equal(t, ErrCodeNotFound, GetCode(outer))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeCapacity, GetCode(CapacityExceeded("full")))
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestGetField(t *testing.T) {
	err := ValidationField("provider", "provider is required")
	assert.Equal(t, "provider", GetField(err))
	assert.Equal(t, "", GetField(Validation("no field")))
}

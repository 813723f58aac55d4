package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "disabled", err: ErrWebhookDisabled, want: http.StatusForbidden},
		{name: "bad signature", err: ErrInvalidSignature, want: http.StatusUnauthorized},
		{name: "wrapped storage", err: fmt.Errorf("save: %w", ErrStorage.WithCause(errors.New("disk full"))), want: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("x"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.err))
		})
	}
}

func TestErrorIsMatchesDerived(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrStorage.WithCause(cause).WithDetail("op", "persist")

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Empty(t, ErrStorage.Details, "sentinel must not be mutated")
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrParse.WithDetail("details", "unexpected EOF"))
	assert.Equal(t, map[string]interface{}{
		"error":   "Failed to process webhook",
		"details": "unexpected EOF",
	}, resp)

	resp = ToErrorResponse(errors.New("boom"))
	assert.Equal(t, "internal server error", resp["error"])
}

func TestIsFatal(t *testing.T) {
	assert.True(t, ErrValidation.IsFatal())
	assert.False(t, ErrStorage.IsFatal())
	assert.True(t, ErrStorage.AsFatal().IsFatal())
}

func TestRecoverPanic(t *testing.T) {
	assert.NoError(t, RecoverPanic(nil))

	err := RecoverPanic("kaboom")
	require.Error(t, err)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, true, appErr.Details["panic"])
	assert.Contains(t, appErr.Cause.Error(), "kaboom")
	assert.True(t, appErr.IsFatal())
}

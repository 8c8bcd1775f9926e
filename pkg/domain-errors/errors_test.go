package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("finds code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeNotFound, "leader not found"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("finds inner code under a different outer code", func(t *testing.T) {
		inner := New(CodeInvariantViolation, "cycle")
		err := Wrap(inner, CodeInternal, "load failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeInvariantViolation))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("table not assigned")
	err := Wrap(cause, CodeInvalidInput, "table 3 is not assigned to witness")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "table 3 is not assigned to witness: table not assigned", err.Error())
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:           http.StatusNotFound,
		CodeInvalidInput:       http.StatusBadRequest,
		CodeValidation:         http.StatusBadRequest,
		CodeInvariantViolation: http.StatusUnprocessableEntity,
		CodeConflict:           http.StatusConflict,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), string(code))
	}
	assert.False(t, IsClientError(CodeInternal))
	assert.True(t, IsClientError(CodeInvariantViolation))
}

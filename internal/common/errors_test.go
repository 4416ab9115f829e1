package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "without cause",
			err:      NewError(ErrCodeInvalidInput, "limit must be positive"),
			expected: "[INVALID_INPUT] limit must be positive",
		},
		{
			name:     "with cause",
			err:      WrapError(ErrCodeDatabase, "upsert failed", errors.New("connection reset")),
			expected: "[DATABASE_ERROR] upsert failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_IsMatchesCode(t *testing.T) {
	cause := errors.New("401 Bad credentials")
	err := fmt.Errorf("enrich owner/repo#7: %w", WrapError(ErrCodeUnauthorized, "GitHub rejected the token", cause))

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, ErrCodeUnauthorized, CodeOf(err))
	assert.Equal(t, "", CodeOf(cause))
}

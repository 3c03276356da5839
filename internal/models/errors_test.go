package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST SUITE 1: ERROR KIND CLASSIFICATION
// ============================================================================

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{
			name:     "not found error",
			err:      NewNotFoundError("policy %s not found", "abc"),
			expected: KindNotFound,
		},
		{
			name:     "validation error",
			err:      NewValidationError("period start after period end"),
			expected: KindValidation,
		},
		{
			name:     "transient error",
			err:      NewTransientError(errors.New("connection refused"), "failed to reach document store"),
			expected: KindTransient,
		},
		{
			name:     "permanent error",
			err:      NewPermanentError(errors.New("bad glyph"), "failed to render invoice document"),
			expected: KindPermanent,
		},
		{
			name:     "plain error",
			err:      errors.New("something else"),
			expected: KindUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: KindUnknown,
		},
		{
			name:     "kind survives fmt.Errorf wrapping",
			err:      fmt.Errorf("failed to process policy: %w", NewTransientError(errors.New("timeout"), "failed to load policy")),
			expected: KindTransient,
		},
		{
			name:     "kind survives double wrapping",
			err:      fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", NewNotFoundError("user missing"))),
			expected: KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

// ============================================================================
// TEST SUITE 2: RETRYABILITY
// ============================================================================

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"transient is retryable", NewTransientError(errors.New("broker down"), "publish failed"), true},
		{"wrapped transient is retryable", fmt.Errorf("context: %w", NewTransientError(nil, "db unavailable")), true},
		{"not found is terminal", NewNotFoundError("policy missing"), false},
		{"validation is terminal", NewValidationError("inverted period"), false},
		{"permanent is terminal", NewPermanentError(nil, "render failed"), false},
		{"unknown is terminal", errors.New("mystery"), false},
		{"nil is terminal", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

// ============================================================================
// TEST SUITE 3: ERROR FORMATTING AND UNWRAPPING
// ============================================================================

func TestBillingErrorMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewTransientError(cause, "failed to upload document for invoice %s", "inv-1")

	assert.Equal(t, "failed to upload document for invoice inv-1: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewValidationError("no eligible coverages")
	assert.Equal(t, "no eligible coverages", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestErrDuplicateInvoiceSentinel(t *testing.T) {
	wrapped := fmt.Errorf("failed to create invoice: %w", ErrDuplicateInvoice)
	assert.ErrorIs(t, wrapped, ErrDuplicateInvoice)
	assert.Equal(t, KindUnknown, KindOf(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "permanent", KindPermanent.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

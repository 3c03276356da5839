package event

import (
	"errors"
	"testing"

	"billing-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Retry Decision Tests
// ============================================================================

func TestShouldRequeue(t *testing.T) {
	transient := models.NewTransientError(errors.New("connection reset"), "failed to reach database")
	validation := models.NewValidationError("policy is not billable")
	notFound := models.NewNotFoundError("policy missing")
	permanent := models.NewPermanentError(errors.New("render failed"), "failed to render")
	untyped := errors.New("something broke")

	tests := []struct {
		name        string
		err         error
		attempts    int
		maxAttempts int
		expected    bool
	}{
		{"transient first attempt", transient, 0, 3, true},
		{"transient mid retries", transient, 2, 3, true},
		{"transient at limit", transient, 3, 3, false},
		{"transient past limit", transient, 5, 3, false},
		{"validation never retries", validation, 0, 3, false},
		{"not found never retries", notFound, 0, 3, false},
		{"permanent never retries", permanent, 0, 3, false},
		{"untyped never retries", untyped, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldRequeue(tt.err, tt.attempts, tt.maxAttempts))
		})
	}
}

func TestRetryCountFromHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  amqp.Table
		expected int
	}{
		{"nil headers", nil, 0},
		{"missing header", amqp.Table{}, 0},
		{"int32 header", amqp.Table{retryCountHeader: int32(2)}, 2},
		{"int64 header", amqp.Table{retryCountHeader: int64(4)}, 4},
		{"int header", amqp.Table{retryCountHeader: 1}, 1},
		{"unexpected type falls back", amqp.Table{retryCountHeader: "2"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, retryCountFromHeaders(tt.headers))
		})
	}
}

func TestDeadLetterQueueName(t *testing.T) {
	assert.Equal(t, "billing_requests.dlq", DeadLetterQueueName("billing_requests"))
	assert.Equal(t, "invoice_notifications.dlq", DeadLetterQueueName("invoice_notifications"))
}

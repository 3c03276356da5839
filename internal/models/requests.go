package models

import "time"

// CreateBillingRequest is the HTTP body for enqueueing an on-demand billing
// request. Both bounds optional; the orchestrator fills the defaults.
type CreateBillingRequest struct {
	PeriodStart *time.Time `json:"billingPeriodStart,omitempty"`
	PeriodEnd   *time.Time `json:"billingPeriodEnd,omitempty"`
}

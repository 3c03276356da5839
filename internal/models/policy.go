package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// VEHICLE INSURANCE POLICIES
// ============================================================================

type PolicyStatus string

const (
	PolicyActive         PolicyStatus = "active"
	PolicyExpired        PolicyStatus = "expired"
	PolicyCancelled      PolicyStatus = "cancelled"
	PolicySuspended      PolicyStatus = "suspended"
	PolicyPendingPayment PolicyStatus = "pending_payment"
)

// Policy is a bound vehicle-insurance contract. Billing reads it, never
// mutates it; status transitions belong to the policy administration flow.
// TotalPremium is informational only, the billed amount always comes from
// the active coverage links.
type Policy struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	PolicyNumber string          `json:"policy_number" db:"policy_number"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	VehiclePlate string          `json:"vehicle_plate" db:"vehicle_plate"`
	Status       PolicyStatus    `json:"status" db:"status"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	EndDate      time.Time       `json:"end_date" db:"end_date"`
	RenewalDate  *time.Time      `json:"renewal_date,omitempty" db:"renewal_date"`
	TotalPremium decimal.Decimal `json:"total_premium" db:"total_premium"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ============================================================================
// COVERAGES (RATE CARD) AND POLICY-COVERAGE LINKS
// ============================================================================

type CoverageStatus string

const (
	CoverageActive   CoverageStatus = "active"
	CoverageInactive CoverageStatus = "inactive"
)

// Coverage is a rate-card item priced per calendar month.
type Coverage struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	MonthlyPrice decimal.Decimal `json:"monthly_price" db:"monthly_price"`
	Status       CoverageStatus  `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// PolicyCoverage links a policy to a coverage with its own status and active
// window. Only active links whose window overlaps the billing period count
// toward the billed amount.
type PolicyCoverage struct {
	PolicyID   uuid.UUID      `json:"policy_id" db:"policy_id"`
	CoverageID uuid.UUID      `json:"coverage_id" db:"coverage_id"`
	Status     CoverageStatus `json:"status" db:"status"`
	StartDate  time.Time      `json:"start_date" db:"start_date"`
	EndDate    *time.Time     `json:"end_date,omitempty" db:"end_date"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

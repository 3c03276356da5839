package services

import (
	"time"

	"billing-service/internal/models"

	"github.com/shopspring/decimal"
)

// ProrationCalculator turns a set of monthly coverage prices into the amount
// owed for a billing period. Pure date and decimal math, no I/O.
type ProrationCalculator struct{}

func NewProrationCalculator() *ProrationCalculator {
	return &ProrationCalculator{}
}

// Calculate charges the inclusive day count of [periodStart, periodEnd]
// against the day count of periodStart's calendar month:
//
//	amount = round(sum(prices) * daysInPeriod / daysInMonth, 2)
//
// A full calendar month therefore bills exactly the price sum. When the
// period crosses into later months the denominator still comes from the
// start month; billing windows are expected to stay inside one month.
func (c *ProrationCalculator) Calculate(coveragePrices []decimal.Decimal, periodStart, periodEnd time.Time) (decimal.Decimal, error) {
	start := DateOnly(periodStart)
	end := DateOnly(periodEnd)

	if start.After(end) {
		return decimal.Zero, models.NewValidationError(
			"period start %s is after period end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	if len(coveragePrices) == 0 {
		return decimal.Zero, nil
	}

	daysInPeriod := int64(end.Sub(start)/(24*time.Hour)) + 1
	daysInMonth := int64(DaysInMonth(start))

	total := decimal.Zero
	for _, price := range coveragePrices {
		total = total.Add(price)
	}

	amount := total.
		Mul(decimal.NewFromInt(daysInPeriod)).
		Div(decimal.NewFromInt(daysInMonth)).
		Round(2)

	return amount, nil
}

// CoveragePrices extracts the monthly prices the calculator consumes.
func CoveragePrices(coverages []models.Coverage) []decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(coverages))
	for _, coverage := range coverages {
		prices = append(prices, coverage.MonthlyPrice)
	}
	return prices
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the day count of t's calendar month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LastDayOfMonth returns midnight UTC of the final day of t's month.
func LastDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

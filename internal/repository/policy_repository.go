package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"billing-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PolicyRepository reads policies and their coverage links. Billing never
// writes to these tables; the policy administration services own them.
type PolicyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetPolicyByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	query := `SELECT * FROM policies WHERE id = $1`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("policy %s not found", id)
		}
		return nil, models.NewTransientError(err, "failed to get policy %s", id)
	}

	return &policy, nil
}

func (r *PolicyRepository) ListActivePolicies(ctx context.Context) ([]models.Policy, error) {
	var policies []models.Policy
	query := `SELECT * FROM policies WHERE status = $1 ORDER BY created_at`

	err := r.db.SelectContext(ctx, &policies, query, models.PolicyActive)
	if err != nil {
		return nil, models.NewTransientError(err, "failed to list active policies")
	}

	return policies, nil
}

// ListActiveCoverages returns the coverages billed for a policy over the
// given period: the coverage and its link must both be active, and the link
// window must overlap [periodStart, periodEnd].
func (r *PolicyRepository) ListActiveCoverages(ctx context.Context, policyID uuid.UUID, periodStart, periodEnd time.Time) ([]models.Coverage, error) {
	var coverages []models.Coverage
	query := `
		SELECT c.id, c.name, c.description, c.monthly_price, c.status, c.created_at, c.updated_at
		FROM coverages c
		JOIN policy_coverages pc ON pc.coverage_id = c.id
		WHERE pc.policy_id = $1
		  AND pc.status = $2
		  AND c.status = $2
		  AND pc.start_date <= $4
		  AND (pc.end_date IS NULL OR pc.end_date >= $3)
		ORDER BY c.name`

	err := r.db.SelectContext(ctx, &coverages, query, policyID, models.CoverageActive, periodStart, periodEnd)
	if err != nil {
		return nil, models.NewTransientError(err, "failed to list active coverages for policy %s", policyID)
	}

	return coverages, nil
}

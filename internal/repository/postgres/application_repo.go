package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

const applicationColumns = `id, applicant_id, category_id, amount, interest_rate, period_months,
       status, rejection_reason, applied_at, approved_by, approved_at`

type ApplicationRepository struct {
	store
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{store{pool: pool}}
}

func scanApplication(row pgx.Row) (*loan.Application, error) {
	out := &loan.Application{}
	err := row.Scan(
		&out.ID, &out.ApplicantID, &out.CategoryID, &out.Amount, &out.InterestRate,
		&out.PeriodMonths, &out.Status, &out.RejectionReason, &out.AppliedAt,
		&out.ApprovedBy, &out.ApprovedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, a *loan.Application) (*loan.Application, error) {
	q := `
INSERT INTO loan_applications (
  applicant_id, category_id, amount, interest_rate, period_months, status, applied_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + applicationColumns
	return scanApplication(r.q(ctx).QueryRow(ctx, q,
		a.ApplicantID, a.CategoryID, a.Amount, a.InterestRate, a.PeriodMonths, a.Status, a.AppliedAt,
	))
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*loan.Application, error) {
	q := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1`
	return scanApplication(r.q(ctx).QueryRow(ctx, q, id))
}

func (r *ApplicationRepository) Update(ctx context.Context, a *loan.Application) error {
	q := `
UPDATE loan_applications SET
  status = $2,
  rejection_reason = $3,
  approved_by = $4,
  approved_at = $5
WHERE id = $1
`
	tag, err := r.q(ctx).Exec(ctx, q, a.ID, a.Status, a.RejectionReason, a.ApprovedBy, a.ApprovedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) ListByStatus(ctx context.Context, status string) ([]loan.Application, error) {
	q := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE status = $1 ORDER BY applied_at ASC`
	rows, err := r.q(ctx).Query(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Application, 0)
	for rows.Next() {
		var item loan.Application
		if err := rows.Scan(
			&item.ID, &item.ApplicantID, &item.CategoryID, &item.Amount, &item.InterestRate,
			&item.PeriodMonths, &item.Status, &item.RejectionReason, &item.AppliedAt,
			&item.ApprovedBy, &item.ApprovedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

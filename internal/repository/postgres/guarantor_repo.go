package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

const guarantorColumns = `id, application_id, member_id, COALESCE(loan_id::text, ''), consent_status,
       rejection_reason, created_at, responded_at`

type GuarantorRepository struct {
	store
}

func NewGuarantorRepository(pool *pgxpool.Pool) *GuarantorRepository {
	return &GuarantorRepository{store{pool: pool}}
}

func scanGuarantor(row pgx.Row) (*loan.Guarantor, error) {
	out := &loan.Guarantor{}
	err := row.Scan(
		&out.ID, &out.ApplicationID, &out.MemberID, &out.LoanID,
		&out.ConsentStatus, &out.RejectionReason, &out.CreatedAt, &out.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *GuarantorRepository) Create(ctx context.Context, g *loan.Guarantor) (*loan.Guarantor, error) {
	q := `
INSERT INTO loan_guarantors (application_id, member_id, consent_status, created_at)
VALUES ($1,$2,$3,$4)
RETURNING ` + guarantorColumns
	return scanGuarantor(r.q(ctx).QueryRow(ctx, q, g.ApplicationID, g.MemberID, g.ConsentStatus, g.CreatedAt))
}

func (r *GuarantorRepository) GetByID(ctx context.Context, id string) (*loan.Guarantor, error) {
	q := `SELECT ` + guarantorColumns + ` FROM loan_guarantors WHERE id = $1`
	return scanGuarantor(r.q(ctx).QueryRow(ctx, q, id))
}

func (r *GuarantorRepository) Update(ctx context.Context, g *loan.Guarantor) error {
	q := `
UPDATE loan_guarantors SET
  loan_id = NULLIF($2, '')::uuid,
  consent_status = $3,
  rejection_reason = $4,
  responded_at = $5
WHERE id = $1
`
	tag, err := r.q(ctx).Exec(ctx, q, g.ID, g.LoanID, g.ConsentStatus, g.RejectionReason, g.RespondedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (r *GuarantorRepository) ListByApplication(ctx context.Context, applicationID string) ([]loan.Guarantor, error) {
	q := `SELECT ` + guarantorColumns + ` FROM loan_guarantors WHERE application_id = $1 ORDER BY created_at ASC`
	rows, err := r.q(ctx).Query(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Guarantor, 0)
	for rows.Next() {
		var item loan.Guarantor
		if err := rows.Scan(
			&item.ID, &item.ApplicationID, &item.MemberID, &item.LoanID,
			&item.ConsentStatus, &item.RejectionReason, &item.CreatedAt, &item.RespondedAt,
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

func (r *GuarantorRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM loan_guarantors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}

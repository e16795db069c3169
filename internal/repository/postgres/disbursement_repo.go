package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

type DisbursementRepository struct {
	store
}

func NewDisbursementRepository(pool *pgxpool.Pool) *DisbursementRepository {
	return &DisbursementRepository{store{pool: pool}}
}

func (r *DisbursementRepository) Create(ctx context.Context, in loan.CreateDisbursementInput) (*loan.Disbursement, error) {
	q := `
INSERT INTO loan_disbursements (loan_id, amount, repayment_months, disbursed_by)
VALUES ($1,$2,$3,$4)
RETURNING id, loan_id, amount, repayment_months, disbursed_by, disbursed_at
`
	out := &loan.Disbursement{}
	err := r.q(ctx).QueryRow(ctx, q, in.LoanID, in.Amount, in.RepaymentMonths, in.DisbursedBy).Scan(
		&out.ID, &out.LoanID, &out.Amount, &out.RepaymentMonths, &out.DisbursedBy, &out.DisbursedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DisbursementRepository) ListByLoan(ctx context.Context, loanID string) ([]loan.Disbursement, error) {
	q := `
SELECT id, loan_id, amount, repayment_months, disbursed_by, disbursed_at
FROM loan_disbursements WHERE loan_id = $1 ORDER BY disbursed_at ASC
`
	rows, err := r.q(ctx).Query(ctx, q, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Disbursement, 0)
	for rows.Next() {
		var item loan.Disbursement
		if err := rows.Scan(
			&item.ID, &item.LoanID, &item.Amount, &item.RepaymentMonths,
			&item.DisbursedBy, &item.DisbursedAt,
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

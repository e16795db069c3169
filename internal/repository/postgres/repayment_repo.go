package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

const repaymentColumns = `id, loan_id, amount, principal_component, interest_component, paid_by,
       payment_date, was_late, due_date, COALESCE(installment_id::text, ''), source_reference, recorded_at`

type RepaymentRepository struct {
	store
}

func NewRepaymentRepository(pool *pgxpool.Pool) *RepaymentRepository {
	return &RepaymentRepository{store{pool: pool}}
}

func scanRepayment(row pgx.Row) (*loan.Repayment, error) {
	out := &loan.Repayment{}
	err := row.Scan(
		&out.ID, &out.LoanID, &out.Amount, &out.PrincipalComponent, &out.InterestComponent,
		&out.PaidBy, &out.PaymentDate, &out.WasLate, &out.DueDate, &out.InstallmentID,
		&out.SourceReference, &out.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *RepaymentRepository) Create(ctx context.Context, in loan.CreateRepaymentInput) (*loan.Repayment, error) {
	q := `
INSERT INTO loan_repayments (
  loan_id, amount, principal_component, interest_component, paid_by,
  payment_date, was_late, due_date, installment_id, source_reference
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,'')::uuid,$10)
RETURNING ` + repaymentColumns
	out, err := scanRepayment(r.q(ctx).QueryRow(ctx, q,
		in.LoanID, in.Amount, in.PrincipalComponent, in.InterestComponent, in.PaidBy,
		in.PaymentDate, in.WasLate, in.DueDate, in.InstallmentID, in.SourceReference,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, loan.ErrDuplicateReference
		}
		return nil, err
	}
	return out, nil
}

func (r *RepaymentRepository) GetBySourceReference(ctx context.Context, ref string) (*loan.Repayment, error) {
	q := `SELECT ` + repaymentColumns + ` FROM loan_repayments WHERE source_reference = $1`
	return scanRepayment(r.q(ctx).QueryRow(ctx, q, ref))
}

func (r *RepaymentRepository) SumForLoan(ctx context.Context, loanID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q(ctx).QueryRow(ctx, `SELECT COALESCE(sum(amount), 0) FROM loan_repayments WHERE loan_id = $1`, loanID).Scan(&total)
	return total, err
}

func (r *RepaymentRepository) SumForInstallment(ctx context.Context, installmentID string) (decimal.Decimal, decimal.Decimal, error) {
	var amount, interest decimal.Decimal
	q := `
SELECT COALESCE(sum(amount), 0), COALESCE(sum(interest_component), 0)
FROM loan_repayments WHERE installment_id = $1
`
	err := r.q(ctx).QueryRow(ctx, q, installmentID).Scan(&amount, &interest)
	return amount, interest, err
}

func (r *RepaymentRepository) ListByLoan(ctx context.Context, loanID string) ([]loan.Repayment, error) {
	q := `SELECT ` + repaymentColumns + ` FROM loan_repayments WHERE loan_id = $1 ORDER BY recorded_at ASC`
	return r.listRepayments(ctx, q, loanID)
}

func (r *RepaymentRepository) listRepayments(ctx context.Context, q string, args ...any) ([]loan.Repayment, error) {
	rows, err := r.q(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Repayment, 0)
	for rows.Next() {
		var item loan.Repayment
		if err := rows.Scan(
			&item.ID, &item.LoanID, &item.Amount, &item.PrincipalComponent, &item.InterestComponent,
			&item.PaidBy, &item.PaymentDate, &item.WasLate, &item.DueDate, &item.InstallmentID,
			&item.SourceReference, &item.RecordedAt,
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

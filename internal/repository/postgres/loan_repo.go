package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

const loanColumns = `id, reference, application_id, member_id, category_id, amount, interest_rate,
       duration_months, status, disbursed_amount, total_repayment_months,
       remaining_disbursement, grace_applied, start_date, end_date,
       repayment_start_date, approved_by, approved_at, created_at, updated_at`

type LoanRepository struct {
	store
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{store{pool: pool}}
}

func scanLoan(row pgx.Row) (*loan.Entity, error) {
	out := &loan.Entity{}
	err := row.Scan(
		&out.ID, &out.Reference, &out.ApplicationID, &out.MemberID, &out.CategoryID,
		&out.Amount, &out.InterestRate, &out.DurationMonths, &out.Status,
		&out.DisbursedAmount, &out.TotalRepaymentMonths, &out.RemainingDisbursement,
		&out.GraceApplied, &out.StartDate, &out.EndDate, &out.RepaymentStartDate,
		&out.ApprovedBy, &out.ApprovedAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) Create(ctx context.Context, in loan.CreateInput) (*loan.Entity, error) {
	q := `
INSERT INTO loans (
  reference, application_id, member_id, category_id, amount, interest_rate,
  duration_months, status, total_repayment_months, approved_by, approved_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$7,$9,$10)
RETURNING ` + loanColumns
	return scanLoan(r.q(ctx).QueryRow(ctx, q,
		in.Reference, in.ApplicationID, in.MemberID, in.CategoryID, in.Amount,
		in.InterestRate, in.DurationMonths, in.Status, in.ApprovedBy, in.ApprovedAt,
	))
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return scanLoan(r.q(ctx).QueryRow(ctx, q, id))
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, id string) (*loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return scanLoan(r.q(ctx).QueryRow(ctx, q, id))
}

func (r *LoanRepository) Update(ctx context.Context, e *loan.Entity) error {
	q := `
UPDATE loans SET
  status = $2,
  disbursed_amount = $3,
  total_repayment_months = $4,
  remaining_disbursement = $5,
  grace_applied = $6,
  interest_rate = $7,
  start_date = $8,
  end_date = $9,
  repayment_start_date = $10,
  updated_at = now()
WHERE id = $1
`
	tag, err := r.q(ctx).Exec(ctx, q,
		e.ID, e.Status, e.DisbursedAmount, e.TotalRepaymentMonths,
		e.RemainingDisbursement, e.GraceApplied, e.InterestRate,
		e.StartDate, e.EndDate, e.RepaymentStartDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) List(ctx context.Context, f loan.ListFilter) ([]loan.Entity, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + loanColumns + ` FROM loans WHERE 1=1`)

	args := []any{}
	argPos := 1
	if strings.TrimSpace(f.MemberID) != "" {
		builder.WriteString(" AND member_id = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, f.MemberID)
		argPos++
	}
	if strings.TrimSpace(f.Status) != "" {
		builder.WriteString(" AND status = $")
		builder.WriteString(strconv.Itoa(argPos))
		args = append(args, f.Status)
		argPos++
	}
	builder.WriteString(" ORDER BY created_at DESC")
	builder.WriteString(" LIMIT $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Limit)
	argPos++
	builder.WriteString(" OFFSET $")
	builder.WriteString(strconv.Itoa(argPos))
	args = append(args, f.Offset)

	rows, err := r.q(ctx).Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Entity, 0)
	for rows.Next() {
		var item loan.Entity
		if err := rows.Scan(
			&item.ID, &item.Reference, &item.ApplicationID, &item.MemberID, &item.CategoryID,
			&item.Amount, &item.InterestRate, &item.DurationMonths, &item.Status,
			&item.DisbursedAmount, &item.TotalRepaymentMonths, &item.RemainingDisbursement,
			&item.GraceApplied, &item.StartDate, &item.EndDate, &item.RepaymentStartDate,
			&item.ApprovedBy, &item.ApprovedAt, &item.CreatedAt, &item.UpdatedAt,
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

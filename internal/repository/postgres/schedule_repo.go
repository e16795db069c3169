package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

const installmentColumns = `id, loan_id, disbursement_id, sequence, due_date, principal, interest, amount_due, is_paid`

type ScheduleRepository struct {
	store
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{store{pool: pool}}
}

func (r *ScheduleRepository) listInstallments(ctx context.Context, q string, args ...any) ([]loan.Installment, error) {
	rows, err := r.q(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Installment, 0)
	for rows.Next() {
		var item loan.Installment
		if err := rows.Scan(
			&item.ID, &item.LoanID, &item.DisbursementID, &item.Sequence, &item.DueDate,
			&item.Principal, &item.Interest, &item.AmountDue, &item.IsPaid,
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

func (r *ScheduleRepository) ListByLoan(ctx context.Context, loanID string) ([]loan.Installment, error) {
	q := `SELECT ` + installmentColumns + ` FROM loan_installments WHERE loan_id = $1 ORDER BY due_date ASC, sequence ASC`
	return r.listInstallments(ctx, q, loanID)
}

func (r *ScheduleRepository) ListPaid(ctx context.Context, loanID string) ([]loan.Installment, error) {
	q := `SELECT ` + installmentColumns + ` FROM loan_installments WHERE loan_id = $1 AND is_paid ORDER BY due_date ASC, sequence ASC`
	return r.listInstallments(ctx, q, loanID)
}

func (r *ScheduleRepository) ListUnpaidForUpdate(ctx context.Context, loanID string) ([]loan.Installment, error) {
	q := `SELECT ` + installmentColumns + ` FROM loan_installments WHERE loan_id = $1 AND NOT is_paid ORDER BY due_date ASC, sequence ASC FOR UPDATE`
	return r.listInstallments(ctx, q, loanID)
}

func (r *ScheduleRepository) CountUnpaid(ctx context.Context, loanID string) (int, error) {
	var n int
	err := r.q(ctx).QueryRow(ctx, `SELECT count(*) FROM loan_installments WHERE loan_id = $1 AND NOT is_paid`, loanID).Scan(&n)
	return n, err
}

func (r *ScheduleRepository) DeleteUnpaid(ctx context.Context, loanID string) error {
	_, err := r.q(ctx).Exec(ctx, `DELETE FROM loan_installments WHERE loan_id = $1 AND NOT is_paid`, loanID)
	return err
}

func (r *ScheduleRepository) CreateBatch(ctx context.Context, items []loan.Installment) error {
	if len(items) == 0 {
		return nil
	}
	q := `
INSERT INTO loan_installments (loan_id, disbursement_id, sequence, due_date, principal, interest, amount_due, is_paid)
VALUES ($1,$2,$3,$4,$5,$6,$7,false)
`
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(q, item.LoanID, item.DisbursementID, item.Sequence, item.DueDate,
			item.Principal, item.Interest, item.AmountDue)
	}

	var results pgx.BatchResults
	if tx := txFromContext(ctx); tx != nil {
		results = tx.SendBatch(ctx, batch)
	} else {
		results = r.pool.SendBatch(ctx, batch)
	}
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

func (r *ScheduleRepository) MarkPaid(ctx context.Context, installmentID string) error {
	tag, err := r.q(ctx).Exec(ctx, `UPDATE loan_installments SET is_paid = true WHERE id = $1`, installmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepository) SumInterest(ctx context.Context, loanID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q(ctx).QueryRow(ctx, `SELECT COALESCE(sum(interest), 0) FROM loan_installments WHERE loan_id = $1`, loanID).Scan(&total)
	return total, err
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/payment"
)

const paymentColumns = `id, member_id, COALESCE(loan_id::text, ''), payment_type, reference,
       COALESCE(source_reference, ''), amount, payoff, verified, repayment_applied,
       created_at, verified_at`

type PaymentRepository struct {
	store
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{store{pool: pool}}
}

func scanPayment(row pgx.Row) (*payment.Entity, error) {
	out := &payment.Entity{}
	err := row.Scan(
		&out.ID, &out.MemberID, &out.LoanID, &out.Type, &out.Reference,
		&out.SourceReference, &out.Amount, &out.Payoff, &out.Verified,
		&out.RepaymentApplied, &out.CreatedAt, &out.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepository) Create(ctx context.Context, e *payment.Entity) (*payment.Entity, error) {
	q := `
INSERT INTO payments (member_id, loan_id, payment_type, reference, amount, payoff, created_at)
VALUES ($1,NULLIF($2,'')::uuid,$3,$4,$5,$6,$7)
RETURNING ` + paymentColumns
	return scanPayment(r.q(ctx).QueryRow(ctx, q,
		e.MemberID, e.LoanID, e.Type, e.Reference, e.Amount, e.Payoff, e.CreatedAt,
	))
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*payment.Entity, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	return scanPayment(r.q(ctx).QueryRow(ctx, q, reference))
}

func (r *PaymentRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*payment.Entity, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1 FOR UPDATE`
	return scanPayment(r.q(ctx).QueryRow(ctx, q, reference))
}

func (r *PaymentRepository) Update(ctx context.Context, e *payment.Entity) error {
	q := `
UPDATE payments SET
  source_reference = NULLIF($2, ''),
  verified = $3,
  repayment_applied = $4,
  verified_at = $5
WHERE id = $1
`
	tag, err := r.q(ctx).Exec(ctx, q, e.ID, e.SourceReference, e.Verified, e.RepaymentApplied, e.VerifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) ListByMember(ctx context.Context, memberID string, limit, offset int32) ([]payment.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE member_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.listPayments(ctx, q, memberID, limit, offset)
}

func (r *PaymentRepository) List(ctx context.Context, limit, offset int32) ([]payment.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.listPayments(ctx, q, limit, offset)
}

func (r *PaymentRepository) listPayments(ctx context.Context, q string, args ...any) ([]payment.Entity, error) {
	rows, err := r.q(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]payment.Entity, 0)
	for rows.Next() {
		var item payment.Entity
		if err := rows.Scan(
			&item.ID, &item.MemberID, &item.LoanID, &item.Type, &item.Reference,
			&item.SourceReference, &item.Amount, &item.Payoff, &item.Verified,
			&item.RepaymentApplied, &item.CreatedAt, &item.VerifiedAt,
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

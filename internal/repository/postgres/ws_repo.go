package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/ws"
)

type WSRepository struct {
	store
}

func NewWSRepository(pool *pgxpool.Pool) *WSRepository {
	return &WSRepository{store{pool: pool}}
}

func (r *WSRepository) ListRepaymentEventsSince(ctx context.Context, since time.Time, limit int32) ([]ws.RepaymentEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT rp.id, rp.loan_id, l.reference, l.member_id, rp.amount, rp.source_reference, rp.recorded_at
FROM loan_repayments rp
JOIN loans l ON l.id = rp.loan_id
WHERE rp.recorded_at > $1
ORDER BY rp.recorded_at ASC
LIMIT $2
`
	rows, err := r.q(ctx).Query(ctx, q, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ws.RepaymentEvent, 0)
	for rows.Next() {
		var ev ws.RepaymentEvent
		if err := rows.Scan(
			&ev.RepaymentID, &ev.LoanID, &ev.LoanReference, &ev.MemberID,
			&ev.Amount, &ev.SourceReference, &ev.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

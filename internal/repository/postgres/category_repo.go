package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/loan"
)

type CategoryRepository struct {
	store
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{store{pool: pool}}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*loan.Category, error) {
	q := `
SELECT id, name, abbreviation, interest_rate, loan_period_months,
       grace_period_months, grace_interest_rate, status
FROM loan_categories WHERE id = $1
`
	out := &loan.Category{}
	err := r.q(ctx).QueryRow(ctx, q, id).Scan(
		&out.ID, &out.Name, &out.Abbreviation, &out.InterestRate,
		&out.LoanPeriodMonths, &out.GracePeriodMonths, &out.GraceInterestRate, &out.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

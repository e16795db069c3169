package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/member"
)

type ContributionRepository struct {
	store
}

func NewContributionRepository(pool *pgxpool.Pool) *ContributionRepository {
	return &ContributionRepository{store{pool: pool}}
}

func (r *ContributionRepository) UpsertByReference(ctx context.Context, c *member.Contribution) error {
	q := `
INSERT INTO member_contributions (member_id, amount, source_reference, entry_date)
VALUES ($1,$2,$3,$4)
ON CONFLICT (source_reference) DO NOTHING
`
	_, err := r.q(ctx).Exec(ctx, q, c.MemberID, c.Amount, c.SourceReference, c.Date)
	return err
}

func (r *ContributionRepository) ListByMember(ctx context.Context, memberID string) ([]member.Contribution, error) {
	q := `
SELECT id, member_id, amount, source_reference, entry_date
FROM member_contributions WHERE member_id = $1 ORDER BY entry_date DESC
`
	rows, err := r.q(ctx).Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]member.Contribution, 0)
	for rows.Next() {
		var item member.Contribution
		if err := rows.Scan(&item.ID, &item.MemberID, &item.Amount, &item.SourceReference, &item.Date); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type LevyRepository struct {
	store
}

func NewLevyRepository(pool *pgxpool.Pool) *LevyRepository {
	return &LevyRepository{store{pool: pool}}
}

func (r *LevyRepository) UpsertByReference(ctx context.Context, l *member.Levy) error {
	q := `
INSERT INTO member_levies (member_id, amount, source_reference, entry_date)
VALUES ($1,$2,$3,$4)
ON CONFLICT (source_reference) DO NOTHING
`
	_, err := r.q(ctx).Exec(ctx, q, l.MemberID, l.Amount, l.SourceReference, l.Date)
	return err
}

func (r *LevyRepository) ListByMember(ctx context.Context, memberID string) ([]member.Levy, error) {
	q := `
SELECT id, member_id, amount, source_reference, entry_date
FROM member_levies WHERE member_id = $1 ORDER BY entry_date DESC
`
	rows, err := r.q(ctx).Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]member.Levy, 0)
	for rows.Next() {
		var item member.Levy
		if err := rows.Scan(&item.ID, &item.MemberID, &item.Amount, &item.SourceReference, &item.Date); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

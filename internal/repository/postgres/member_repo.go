package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/domain/member"
)

const memberColumns = `id, COALESCE(member_number, ''), full_name, email, phone_number, address,
       password_hash, role, status, membership_status, has_paid_shares, has_paid_levy,
       joined_on, created_at, updated_at`

type MemberRepository struct {
	store
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{store{pool: pool}}
}

func scanMember(row pgx.Row) (*member.Entity, error) {
	out := &member.Entity{}
	err := row.Scan(
		&out.ID, &out.MemberNumber, &out.FullName, &out.Email, &out.PhoneNumber,
		&out.Address, &out.PasswordHash, &out.Role, &out.Status, &out.MembershipStatus,
		&out.HasPaidShares, &out.HasPaidLevy, &out.JoinedOn, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *MemberRepository) Create(ctx context.Context, e *member.Entity) (*member.Entity, error) {
	q := `
INSERT INTO members (
  full_name, email, phone_number, address, password_hash, role,
  status, membership_status, joined_on
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING ` + memberColumns
	out, err := scanMember(r.q(ctx).QueryRow(ctx, q,
		e.FullName, e.Email, e.PhoneNumber, e.Address, e.PasswordHash,
		e.Role, e.Status, e.MembershipStatus, e.JoinedOn,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, member.ErrEmailTaken
		}
		return nil, err
	}
	return out, nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*member.Entity, error) {
	q := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(r.q(ctx).QueryRow(ctx, q, id))
}

func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*member.Entity, error) {
	q := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`
	return scanMember(r.q(ctx).QueryRow(ctx, q, email))
}

func (r *MemberRepository) Update(ctx context.Context, e *member.Entity) error {
	q := `
UPDATE members SET
  member_number = NULLIF($2, ''),
  full_name = $3,
  phone_number = $4,
  address = $5,
  status = $6,
  membership_status = $7,
  has_paid_shares = $8,
  has_paid_levy = $9,
  updated_at = now()
WHERE id = $1
`
	tag, err := r.q(ctx).Exec(ctx, q,
		e.ID, e.MemberNumber, e.FullName, e.PhoneNumber, e.Address,
		e.Status, e.MembershipStatus, e.HasPaidShares, e.HasPaidLevy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return member.ErrNotFound
	}
	return nil
}

func (r *MemberRepository) List(ctx context.Context, status string, limit, offset int32) ([]member.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + memberColumns + ` FROM members WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q(ctx).Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]member.Entity, 0)
	for rows.Next() {
		var item member.Entity
		if err := rows.Scan(
			&item.ID, &item.MemberNumber, &item.FullName, &item.Email, &item.PhoneNumber,
			&item.Address, &item.PasswordHash, &item.Role, &item.Status, &item.MembershipStatus,
			&item.HasPaidShares, &item.HasPaidLevy, &item.JoinedOn, &item.CreatedAt, &item.UpdatedAt,
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

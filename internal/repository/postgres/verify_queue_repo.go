package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forte001/GraceCoop/internal/jobs"
)

type VerifyQueueRepository struct {
	store
}

func NewVerifyQueueRepository(pool *pgxpool.Pool) *VerifyQueueRepository {
	return &VerifyQueueRepository{store{pool: pool}}
}

func (r *VerifyQueueRepository) Enqueue(ctx context.Context, reference string) error {
	q := `INSERT INTO verification_jobs (reference, status) VALUES ($1, 'pending') ON CONFLICT (reference) DO NOTHING`
	_, err := r.q(ctx).Exec(ctx, q, reference)
	return err
}

// ClaimPending moves a batch of due jobs to 'processing' and returns them.
// SKIP LOCKED keeps concurrent workers off each other's batch.
func (r *VerifyQueueRepository) ClaimPending(ctx context.Context, limit int32) ([]jobs.VerifyJob, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
UPDATE verification_jobs SET status = 'processing', attempts = attempts + 1
WHERE id IN (
  SELECT id FROM verification_jobs
  WHERE status = 'pending' AND available_at <= now()
  ORDER BY available_at ASC
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
RETURNING id, reference, status, attempts, COALESCE(last_error, ''), available_at
`
	rows, err := r.q(ctx).Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]jobs.VerifyJob, 0)
	for rows.Next() {
		var job jobs.VerifyJob
		if err := rows.Scan(&job.ID, &job.Reference, &job.Status, &job.Attempts, &job.LastError, &job.AvailableAt); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *VerifyQueueRepository) MarkDone(ctx context.Context, jobID int64) error {
	_, err := r.q(ctx).Exec(ctx, `UPDATE verification_jobs SET status = 'done', last_error = NULL WHERE id = $1`, jobID)
	return err
}

func (r *VerifyQueueRepository) MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	q := `UPDATE verification_jobs SET status = 'pending', available_at = $2, last_error = $3 WHERE id = $1`
	_, err := r.q(ctx).Exec(ctx, q, jobID, nextAvailableAt, lastError)
	return err
}

func (r *VerifyQueueRepository) MarkFailed(ctx context.Context, jobID int64, lastError string) error {
	_, err := r.q(ctx).Exec(ctx, `UPDATE verification_jobs SET status = 'failed', last_error = $2 WHERE id = $1`, jobID)
	return err
}

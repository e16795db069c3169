package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/forte001/GraceCoop/internal/domain/payment"
)

type VerifyJob struct {
	ID          int64
	Reference   string
	Status      string
	Attempts    int32
	LastError   string
	AvailableAt time.Time
}

type QueueRepository interface {
	ClaimPending(ctx context.Context, limit int32) ([]VerifyJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

type Reconciler interface {
	Verify(ctx context.Context, reference string) (*payment.VerifyOutcome, error)
}

// Worker rechecks initiated payments against the gateway until they settle or
// definitively fail. Lost webhooks and abandoned checkouts both end up here.
type Worker struct {
	queue        QueueRepository
	reconciler   Reconciler
	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
}

func NewWorker(queue QueueRepository, reconciler Reconciler, maxAttempts int32) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{
		queue:       queue,
		reconciler:  reconciler,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*30) * time.Second
		},
	}
}

func (w *Worker) RunOnce(ctx context.Context, batchSize int32) error {
	batch, err := w.queue.ClaimPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, job := range batch {
		if err := w.processJob(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job VerifyJob) error {
	_, err := w.reconciler.Verify(ctx, job.Reference)
	switch {
	case err == nil:
		return w.queue.MarkDone(ctx, job.ID)
	case errors.Is(err, payment.ErrVerificationFailed):
		// The gateway has given a final answer; retrying cannot change it.
		return w.queue.MarkFailed(ctx, job.ID, err.Error())
	case errors.Is(err, payment.ErrNotFound):
		return w.queue.MarkFailed(ctx, job.ID, err.Error())
	default:
		// Pending transactions and transient gateway errors retry with backoff.
		if job.Attempts >= w.maxAttempts {
			return w.queue.MarkFailed(ctx, job.ID, err.Error())
		}
		next := w.now().Add(w.retryBackoff(job.Attempts))
		return w.queue.MarkRetry(ctx, job.ID, next, err.Error())
	}
}

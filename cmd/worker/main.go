package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/forte001/GraceCoop/internal/auth"
	"github.com/forte001/GraceCoop/internal/config"
	"github.com/forte001/GraceCoop/internal/db"
	loandomain "github.com/forte001/GraceCoop/internal/domain/loan"
	memberdomain "github.com/forte001/GraceCoop/internal/domain/member"
	paymentdomain "github.com/forte001/GraceCoop/internal/domain/payment"
	"github.com/forte001/GraceCoop/internal/gateway"
	"github.com/forte001/GraceCoop/internal/jobs"
	"github.com/forte001/GraceCoop/internal/observability"
	postgresrepo "github.com/forte001/GraceCoop/internal/repository/postgres"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	txManager := postgresrepo.NewTxManager(pool)
	loanRepo := postgresrepo.NewLoanRepository(pool)
	scheduleRepo := postgresrepo.NewScheduleRepository(pool)
	disbursementRepo := postgresrepo.NewDisbursementRepository(pool)
	repaymentRepo := postgresrepo.NewRepaymentRepository(pool)
	memberRepo := postgresrepo.NewMemberRepository(pool)
	queueRepo := postgresrepo.NewVerifyQueueRepository(pool)

	scheduleEngine := loandomain.NewScheduleEngine(disbursementRepo, scheduleRepo)
	loanService := loandomain.NewService(
		loanRepo,
		postgresrepo.NewCategoryRepository(pool),
		postgresrepo.NewApplicationRepository(pool),
		postgresrepo.NewGuarantorRepository(pool),
		disbursementRepo,
		scheduleRepo,
		repaymentRepo,
		scheduleEngine,
		txManager,
	)
	allocator := loandomain.NewAllocator(loanRepo, scheduleRepo, repaymentRepo, txManager)
	memberService := memberdomain.NewService(
		memberRepo,
		postgresrepo.NewContributionRepository(pool),
		postgresrepo.NewLevyRepository(pool),
		auth.NewBcryptHasher(),
	)
	paymentService := paymentdomain.NewService(
		postgresrepo.NewPaymentRepository(pool),
		loanPaymentGateway{loans: loanService, allocator: allocator},
		memberService,
		gateway.NewPaystackVerifier(cfg.PaystackBaseURL, cfg.PaystackSecretKey),
		queueRepo,
		txManager,
	)

	worker := jobs.NewWorker(queueRepo, paymentService, cfg.VerifyMaxAttempts)

	interval := cfg.VerifyWorkerInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Guarantor consents that sit unanswered past the cutoff are swept once
	// an hour.
	staleTicker := time.NewTicker(time.Hour)
	defer staleTicker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("verify worker started", "interval", interval.String(), "batch_size", cfg.VerifyWorkerBatchSize)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("verify worker stopped")
			return
		case <-staleTicker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 60*time.Second)
			rejected, err := loanService.AutoRejectStaleApplications(runCtx)
			runCancel()
			if err != nil {
				logger.Error("stale application sweep failed", "err", err)
			} else if rejected > 0 {
				logger.Info("stale applications rejected", "count", rejected)
			}
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 60*time.Second)
			err := worker.RunOnce(runCtx, cfg.VerifyWorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("verify run failed", "err", err)
			}
		}
	}
}

type loanPaymentGateway struct {
	loans     *loandomain.Service
	allocator *loandomain.Allocator
}

func (g loanPaymentGateway) GetByID(ctx context.Context, loanID string) (*loandomain.Entity, error) {
	return g.loans.GetLoan(ctx, loanID)
}

func (g loanPaymentGateway) Outstanding(ctx context.Context, loanID string) (decimal.Decimal, error) {
	return g.allocator.Outstanding(ctx, loanID)
}

func (g loanPaymentGateway) Apply(ctx context.Context, in loandomain.ApplyInput) (*loandomain.AllocationResult, error) {
	return g.allocator.Apply(ctx, in)
}

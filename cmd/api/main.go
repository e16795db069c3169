package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/forte001/GraceCoop/internal/auth"
	"github.com/forte001/GraceCoop/internal/config"
	"github.com/forte001/GraceCoop/internal/db"
	loandomain "github.com/forte001/GraceCoop/internal/domain/loan"
	memberdomain "github.com/forte001/GraceCoop/internal/domain/member"
	paymentdomain "github.com/forte001/GraceCoop/internal/domain/payment"
	"github.com/forte001/GraceCoop/internal/gateway"
	"github.com/forte001/GraceCoop/internal/http/handlers"
	"github.com/forte001/GraceCoop/internal/observability"
	postgresrepo "github.com/forte001/GraceCoop/internal/repository/postgres"
	"github.com/forte001/GraceCoop/internal/server"
	"github.com/forte001/GraceCoop/internal/ws"
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

	hasher := auth.NewBcryptHasher()
	memberService := memberdomain.NewService(
		memberRepo,
		postgresrepo.NewContributionRepository(pool),
		postgresrepo.NewLevyRepository(pool),
		hasher,
	)

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	authService := auth.NewService(memberRepo, hasher, jwtManager, cfg.JWTAccessTTL)

	paymentService := paymentdomain.NewService(
		postgresrepo.NewPaymentRepository(pool),
		loanPaymentGateway{loans: loanService, allocator: allocator},
		memberService,
		gateway.NewPaystackVerifier(cfg.PaystackBaseURL, cfg.PaystackSecretKey),
		postgresrepo.NewVerifyQueueRepository(pool),
		txManager,
	)

	hub := ws.NewHub()
	notifier := ws.NewNotifier(postgresrepo.NewWSRepository(pool), hub, cfg.NotifierInterval)
	notifierCtx, notifierCancel := context.WithCancel(context.Background())
	defer notifierCancel()
	go func() {
		if err := notifier.Run(notifierCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notifier stopped", "err", err)
		}
	}()

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:         pool,
		AuthHandler:    handlers.NewAuthHandler(authService),
		MemberHandler:  handlers.NewMemberHandler(memberService),
		LoanHandler:    handlers.NewLoanHandler(loanService),
		PaymentHandler: handlers.NewPaymentHandler(paymentService),
		WebhookHandler: handlers.NewWebhookHandler(paymentService, cfg.PaystackSecretKey, logger),
		WSHandler:      ws.NewHandler(hub),
		JWTManager:     jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}

// loanPaymentGateway bundles the loan read and allocation paths the payment
// service needs behind its single collaborator interface.
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

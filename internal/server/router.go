package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forte001/GraceCoop/internal/auth"
	"github.com/forte001/GraceCoop/internal/config"
	"github.com/forte001/GraceCoop/internal/domain/member"
	"github.com/forte001/GraceCoop/internal/http/handlers"
	"github.com/forte001/GraceCoop/internal/http/middleware"
	"github.com/forte001/GraceCoop/internal/version"
	"github.com/forte001/GraceCoop/internal/ws"
)

type Dependencies struct {
	Pinger         handlers.Pinger
	AuthHandler    *handlers.AuthHandler
	MemberHandler  *handlers.MemberHandler
	LoanHandler    *handlers.LoanHandler
	PaymentHandler *handlers.PaymentHandler
	WebhookHandler *handlers.WebhookHandler
	WSHandler      *ws.Handler
	JWTManager     *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestBodyLimit(cfg.MaxRequestBodyBytes))
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.WebhookHandler != nil {
		r.POST("/v1/webhooks/paystack", deps.WebhookHandler.HandlePaystack)
	}

	if deps.AuthHandler != nil && deps.JWTManager != nil {
		authGroup := r.Group("/v1/auth")
		authGroup.POST("/login", deps.AuthHandler.Login)
		if deps.MemberHandler != nil {
			authGroup.POST("/register", deps.MemberHandler.Register)
		}

		memberGroup := r.Group("/v1")
		memberGroup.Use(middleware.RequireAuth(deps.JWTManager))

		if deps.MemberHandler != nil {
			memberGroup.GET("/me", deps.MemberHandler.GetProfile)
			memberGroup.GET("/me/contributions", deps.MemberHandler.ListContributions)
			memberGroup.GET("/me/levies", deps.MemberHandler.ListLevies)
		}

		if deps.LoanHandler != nil {
			memberGroup.POST("/applications", deps.LoanHandler.SubmitApplication)
			memberGroup.POST("/applications/:applicationId/guarantors/replace", deps.LoanHandler.ReplaceGuarantors)
			memberGroup.GET("/applications/:applicationId/guarantors", deps.LoanHandler.GetGuarantorSummary)
			memberGroup.POST("/consents/:guarantorId/respond", deps.LoanHandler.RespondToConsent)
			memberGroup.GET("/loans/mine", deps.LoanHandler.ListMyLoans)
			memberGroup.GET("/loans/:loanId", deps.LoanHandler.GetLoan)
			memberGroup.GET("/loans/:loanId/summary", deps.LoanHandler.GetSummary)
			memberGroup.GET("/loans/:loanId/schedule", deps.LoanHandler.GetSchedule)
			memberGroup.GET("/loans/:loanId/repayments", deps.LoanHandler.ListRepayments)
			memberGroup.GET("/loans/:loanId/disbursements", deps.LoanHandler.ListDisbursements)
		}

		if deps.PaymentHandler != nil {
			memberGroup.POST("/payments/loan", deps.PaymentHandler.InitiateLoanPayment)
			memberGroup.POST("/payments/entry", deps.PaymentHandler.InitiateEntryPayment)
			memberGroup.GET("/payments/:reference/verify", deps.PaymentHandler.Verify)
			memberGroup.GET("/payments/:reference", deps.PaymentHandler.GetPayment)
			memberGroup.GET("/payments", deps.PaymentHandler.ListMyPayments)
		}

		adminGroup := r.Group("/v1/admin")
		adminGroup.Use(middleware.RequireAuth(deps.JWTManager), middleware.RequireRole(member.RoleAdmin))
		if deps.MemberHandler != nil {
			adminGroup.GET("/members", deps.MemberHandler.ListMembers)
			adminGroup.POST("/members/:memberId/approve", deps.MemberHandler.Approve)
		}
		if deps.LoanHandler != nil {
			adminGroup.GET("/loans", deps.LoanHandler.ListLoans)
			adminGroup.POST("/applications/:applicationId/approve", deps.LoanHandler.ApproveApplication)
			adminGroup.POST("/loans/:loanId/disburse", deps.LoanHandler.Disburse)
			adminGroup.POST("/loans/:loanId/grace", deps.LoanHandler.ApplyGrace)
		}
		if deps.PaymentHandler != nil {
			adminGroup.GET("/payments", deps.PaymentHandler.ListPayments)
		}

		if deps.WSHandler != nil {
			memberGroup.GET("/ws", deps.WSHandler.Serve)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	paymentdomain "github.com/forte001/GraceCoop/internal/domain/payment"
)

type PaymentService interface {
	InitiateLoanPayment(ctx context.Context, in paymentdomain.InitiateLoanPaymentInput) (*paymentdomain.Entity, error)
	InitiateEntryPayment(ctx context.Context, memberID, paymentType string, amount decimal.Decimal) (*paymentdomain.Entity, error)
	Verify(ctx context.Context, reference string) (*paymentdomain.VerifyOutcome, error)
	GetByReference(ctx context.Context, reference string) (*paymentdomain.Entity, error)
	ListByMember(ctx context.Context, memberID string, limit, offset int32) ([]paymentdomain.Entity, error)
	List(ctx context.Context, limit, offset int32) ([]paymentdomain.Entity, error)
}

type PaymentHandler struct {
	paymentService PaymentService
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) InitiateLoanPayment(c *gin.Context) {
	var req struct {
		LoanID string          `json:"loan_id"`
		Payoff bool            `json:"payoff"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	p, err := h.paymentService.InitiateLoanPayment(c.Request.Context(), paymentdomain.InitiateLoanPaymentInput{
		MemberID: c.GetString("member_id"),
		LoanID:   req.LoanID,
		Payoff:   req.Payoff,
		Amount:   req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		case errors.Is(err, paymentdomain.ErrAlreadySettled):
			c.JSON(http.StatusConflict, gin.H{"error": "loan_already_fully_paid"})
		case errors.Is(err, paymentdomain.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "initiate_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) InitiateEntryPayment(c *gin.Context) {
	var req struct {
		Type   string          `json:"type"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	p, err := h.paymentService.InitiateEntryPayment(c.Request.Context(), c.GetString("member_id"), req.Type, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrInvalidType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payment_type"})
		case errors.Is(err, paymentdomain.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "initiate_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_reference"})
		return
	}

	outcome, err := h.paymentService.Verify(c.Request.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
		case errors.Is(err, paymentdomain.ErrVerificationPending):
			c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
		case errors.Is(err, paymentdomain.ErrVerificationFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification_failed"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "verify_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_reference"})
		return
	}
	p, err := h.paymentService.GetByReference(c.Request.Context(), reference)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.paymentService.ListByMember(c.Request.Context(), c.GetString("member_id"), int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_payments_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.paymentService.List(c.Request.Context(), int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_payments_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	loandomain "github.com/forte001/GraceCoop/internal/domain/loan"
)

type LoanService interface {
	SubmitApplication(ctx context.Context, in loandomain.ApplicationInput) (*loandomain.Application, error)
	RespondToConsent(ctx context.Context, guarantorRowID string, approve bool, reason string) (*loandomain.Guarantor, error)
	ReplaceGuarantors(ctx context.Context, applicationID string, replacementIDs []string) error
	ApproveApplication(ctx context.Context, applicationID, approvedBy string) (*loandomain.Entity, error)
	Disburse(ctx context.Context, in loandomain.DisburseInput) (*loandomain.Disbursement, error)
	ApplyGrace(ctx context.Context, loanID string) (*loandomain.Entity, error)
	EnsureSchedule(ctx context.Context, loanID string) ([]loandomain.Installment, error)
	GetLoan(ctx context.Context, id string) (*loandomain.Entity, error)
	ListLoans(ctx context.Context, f loandomain.ListFilter) ([]loandomain.Entity, error)
	GetApplication(ctx context.Context, id string) (*loandomain.Application, error)
	GuarantorSummary(ctx context.Context, applicationID string) (*loandomain.ConsentSummary, error)
	ListRepayments(ctx context.Context, loanID string) ([]loandomain.Repayment, error)
	ListDisbursements(ctx context.Context, loanID string) ([]loandomain.Disbursement, error)
	Summary(ctx context.Context, loanID string) (*loandomain.Summary, error)
}

type LoanHandler struct {
	loanService LoanService
}

func NewLoanHandler(loanService LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

func (h *LoanHandler) SubmitApplication(c *gin.Context) {
	var req struct {
		CategoryID   string          `json:"category_id"`
		Amount       decimal.Decimal `json:"amount"`
		GuarantorIDs []string        `json:"guarantor_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	app, err := h.loanService.SubmitApplication(c.Request.Context(), loandomain.ApplicationInput{
		ApplicantID:  c.GetString("member_id"),
		CategoryID:   req.CategoryID,
		Amount:       req.Amount,
		GuarantorIDs: req.GuarantorIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, loandomain.ErrInsufficientGuarantors):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient_guarantors"})
		case errors.Is(err, loandomain.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "application_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *LoanHandler) RespondToConsent(c *gin.Context) {
	guarantorRowID := strings.TrimSpace(c.Param("guarantorId"))
	if guarantorRowID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	var req struct {
		Approve bool   `json:"approve"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	g, err := h.loanService.RespondToConsent(c.Request.Context(), guarantorRowID, req.Approve, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, loandomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "consent_not_found"})
		case errors.Is(err, loandomain.ErrConsentFinal):
			c.JSON(http.StatusConflict, gin.H{"error": "consent_already_final"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "consent_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *LoanHandler) ReplaceGuarantors(c *gin.Context) {
	applicationID := strings.TrimSpace(c.Param("applicationId"))
	var req struct {
		ReplacementIDs []string `json:"replacement_ids"`
	}
	if applicationID == "" || c.ShouldBindJSON(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.loanService.ReplaceGuarantors(c.Request.Context(), applicationID, req.ReplacementIDs); err != nil {
		switch {
		case errors.Is(err, loandomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
		case errors.Is(err, loandomain.ErrGuarantorNotReplaceable):
			c.JSON(http.StatusConflict, gin.H{"error": "guarantor_not_replaceable"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "replace_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "replaced"})
}

func (h *LoanHandler) ApproveApplication(c *gin.Context) {
	applicationID := strings.TrimSpace(c.Param("applicationId"))
	if applicationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_application_id"})
		return
	}

	ln, err := h.loanService.ApproveApplication(c.Request.Context(), applicationID, c.GetString("member_id"))
	if err != nil {
		switch {
		case errors.Is(err, loandomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
		case errors.Is(err, loandomain.ErrApplicationProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "application_already_processed"})
		case errors.Is(err, loandomain.ErrGuarantorsNotApproved):
			c.JSON(http.StatusConflict, gin.H{"error": "guarantors_not_approved"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "approve_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, ln)
}

func (h *LoanHandler) Disburse(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if loanID == "" || c.ShouldBindJSON(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	d, err := h.loanService.Disburse(c.Request.Context(), loandomain.DisburseInput{
		LoanID:      loanID,
		Amount:      req.Amount,
		DisbursedBy: c.GetString("member_id"),
	})
	if err != nil {
		switch {
		case errors.Is(err, loandomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
		case errors.Is(err, loandomain.ErrExceedsApprovedAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "exceeds_approved_amount"})
		case errors.Is(err, loandomain.ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_loan_status"})
		case errors.Is(err, loandomain.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "disburse_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *LoanHandler) ApplyGrace(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}

	ln, err := h.loanService.ApplyGrace(c.Request.Context(), loanID)
	if err != nil {
		switch {
		case errors.Is(err, loandomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
		case errors.Is(err, loandomain.ErrGraceAlreadyApplied):
			c.JSON(http.StatusConflict, gin.H{"error": "grace_already_applied"})
		case errors.Is(err, loandomain.ErrNoGracePeriod):
			c.JSON(http.StatusBadRequest, gin.H{"error": "category_has_no_grace_period"})
		case errors.Is(err, loandomain.ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_loan_status"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "grace_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, ln)
}

func (h *LoanHandler) GetSchedule(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	items, err := h.loanService.EnsureSchedule(c.Request.Context(), loanID)
	if err != nil {
		if errors.Is(err, loandomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "schedule_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	item, err := h.loanService.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *LoanHandler) GetSummary(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	summary, err := h.loanService.Summary(c.Request.Context(), loanID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *LoanHandler) ListLoans(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.loanService.ListLoans(c.Request.Context(), loandomain.ListFilter{
		MemberID: strings.TrimSpace(c.Query("member_id")),
		Status:   strings.TrimSpace(c.Query("status")),
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_loans_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) ListMyLoans(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.loanService.ListLoans(c.Request.Context(), loandomain.ListFilter{
		MemberID: c.GetString("member_id"),
		Status:   strings.TrimSpace(c.Query("status")),
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_loans_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) GetGuarantorSummary(c *gin.Context) {
	applicationID := strings.TrimSpace(c.Param("applicationId"))
	if applicationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_application_id"})
		return
	}
	summary, err := h.loanService.GuarantorSummary(c.Request.Context(), applicationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *LoanHandler) ListRepayments(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	items, err := h.loanService.ListRepayments(c.Request.Context(), loanID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_repayments_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) ListDisbursements(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	items, err := h.loanService.ListDisbursements(c.Request.Context(), loanID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_disbursements_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

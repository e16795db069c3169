package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	memberdomain "github.com/forte001/GraceCoop/internal/domain/member"
)

type MemberService interface {
	Register(ctx context.Context, in memberdomain.RegisterInput) (*memberdomain.Entity, error)
	Approve(ctx context.Context, memberID string) (*memberdomain.Entity, error)
	Get(ctx context.Context, memberID string) (*memberdomain.Entity, error)
	List(ctx context.Context, status string, limit, offset int32) ([]memberdomain.Entity, error)
	ListContributions(ctx context.Context, memberID string) ([]memberdomain.Contribution, error)
	ListLevies(ctx context.Context, memberID string) ([]memberdomain.Levy, error)
}

type MemberHandler struct {
	memberService MemberService
}

func NewMemberHandler(memberService MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

func (h *MemberHandler) Register(c *gin.Context) {
	var req struct {
		FullName    string `json:"full_name"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
		Address     string `json:"address"`
		Password    string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	m, err := h.memberService.Register(c.Request.Context(), memberdomain.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Password:    req.Password,
	})
	if err != nil {
		if errors.Is(err, memberdomain.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email_already_registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration_failed"})
		return
	}
	c.JSON(http.StatusCreated, memberView(m))
}

func (h *MemberHandler) Approve(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("memberId"))
	if memberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_member_id"})
		return
	}
	m, err := h.memberService.Approve(c.Request.Context(), memberID)
	if err != nil {
		switch {
		case errors.Is(err, memberdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "member_not_found"})
		case errors.Is(err, memberdomain.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "member_already_processed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "approve_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, memberView(m))
}

func (h *MemberHandler) GetProfile(c *gin.Context) {
	memberID := c.GetString("member_id")
	m, err := h.memberService.Get(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member_not_found"})
		return
	}
	c.JSON(http.StatusOK, memberView(m))
}

func (h *MemberHandler) ListMembers(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.memberService.List(c.Request.Context(), strings.TrimSpace(c.Query("status")), int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_members_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *MemberHandler) ListContributions(c *gin.Context) {
	items, err := h.memberService.ListContributions(c.Request.Context(), c.GetString("member_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_contributions_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *MemberHandler) ListLevies(c *gin.Context) {
	items, err := h.memberService.ListLevies(c.Request.Context(), c.GetString("member_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_levies_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

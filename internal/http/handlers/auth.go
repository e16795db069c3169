package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forte001/GraceCoop/internal/auth"
	memberdomain "github.com/forte001/GraceCoop/internal/domain/member"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  result.Token,
		"member": memberView(result.Member),
	})
}

func memberView(m *memberdomain.Entity) gin.H {
	return gin.H{
		"id":                m.ID,
		"member_number":     m.MemberNumber,
		"full_name":         m.FullName,
		"email":             m.Email,
		"role":              m.Role,
		"status":            m.Status,
		"membership_status": m.MembershipStatus,
		"has_paid_shares":   m.HasPaidShares,
		"has_paid_levy":     m.HasPaidLevy,
	}
}

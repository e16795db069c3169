package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/forte001/GraceCoop/internal/domain/payment"
	"github.com/forte001/GraceCoop/internal/gateway"
)

type WebhookService interface {
	HandleWebhook(ctx context.Context, ev paymentdomain.WebhookEvent) (*paymentdomain.VerifyOutcome, error)
}

type WebhookHandler struct {
	paymentService WebhookService
	secretKey      string
	logger         *slog.Logger
}

func NewWebhookHandler(paymentService WebhookService, secretKey string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService, secretKey: secretKey, logger: logger}
}

// HandlePaystack validates the HMAC signature over the raw body before
// touching anything else; an unsigned or mis-signed delivery is dropped with
// 401. The gateway retries on non-2xx, so processing errors return 500.
func (h *WebhookHandler) HandlePaystack(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	if !gateway.ValidSignature(h.secretKey, body, c.GetHeader("x-paystack-signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		return
	}

	var payload struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	_, err = h.paymentService.HandleWebhook(c.Request.Context(), paymentdomain.WebhookEvent{
		Event:     payload.Event,
		Reference: payload.Data.Reference,
	})
	if err != nil {
		// Unknown references are acked so the gateway stops retrying events
		// for checkouts we never initiated.
		if errors.Is(err, paymentdomain.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		h.logger.Error("webhook processing failed",
			slog.String("event", payload.Event),
			slog.String("reference", payload.Data.Reference),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

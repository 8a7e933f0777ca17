package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopstack/inventory-api/internal/payment"
	"github.com/shopstack/inventory-api/internal/service"
)

// maxWebhookBody caps how much of a webhook payload is read before
// signature verification.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	orderService  *service.OrderService
	webhookSecret string
	log           *slog.Logger
}

func NewWebhookHandler(orderService *service.OrderService, webhookSecret string, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{orderService: orderService, webhookSecret: webhookSecret, log: log}
}

// HandleEvent authenticates and dispatches a provider webhook. The raw
// body is verified before any parsing; after the signature checks out the
// event is always acknowledged, whatever happens downstream.
func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	sig := c.GetHeader(payment.SignatureHeader)
	if err := payment.VerifySignature(body, sig, h.webhookSecret, payment.DefaultTolerance); err != nil {
		h.log.Warn("webhook signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		h.log.Error("webhook payload unparseable", "error", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	h.orderService.ProcessWebhookEvent(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sahar009/awari-backend-sub002/internal/api/middleware"
	"github.com/Sahar009/awari-backend-sub002/internal/api/service"
)

// SignatureHeader carries the gateway's HMAC over the raw request body
const SignatureHeader = "X-Gateway-Signature"

// WebhookHandler receives payment gateway webhook deliveries
type WebhookHandler struct {
	logger  *slog.Logger
	service service.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		logger:  logger,
		service: webhookService,
	}
}

// Handle processes POST /webhooks/gateway requests. The gateway retries on
// non-2xx, so transient failures return 500 and permanent outcomes return 200.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondBadRequest(c, "failed to read request body")
		return
	}

	err = h.service.Process(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			h.logger.Warn("Webhook signature verification failed",
				"correlation_id", middleware.GetCorrelationID(c),
				"client_ip", c.ClientIP(),
			)
			RespondUnauthorized(c, "Invalid signature")
			return
		}
		h.logger.Error("Webhook processing failed",
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	c.Status(http.StatusOK)
}

package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"crowdtask_backend/internal/config"
	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/services"
	"crowdtask_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Razorpay-Signature"

type WebhookHandler struct {
	*BaseHandler
	webhookService services.WebhookService
}

func NewWebhookHandler(base *BaseHandler, webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    base,
		webhookService: webhookService,
	}
}

// RegisterRoutes регистрирует маршрут приема webhook-событий шлюза.
// Без AuthMiddleware: вместо JWT событие подтверждается HMAC-подписью.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/payments", h.HandlePaymentEvent)
	}
}

// HandlePaymentEvent принимает событие шлюза, проверяет подпись и
// передает его реконсилеру. 2xx возвращается только после обработки
// события, иначе шлюз повторит доставку.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to read webhook body", err)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Unable to read request body"))
		return
	}

	secret := config.GetConfig().Payments.WebhookSecret
	signature := c.GetHeader(signatureHeader)
	if !payments.VerifyWebhookSignature(body, signature, secret) {
		logger.CtxWarn(ctx, "Webhook signature mismatch", "ip", c.ClientIP())
		h.HandleServiceError(c, apperrors.ErrBadWebhookSignature)
		return
	}

	var event payments.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.CtxWithError(ctx, "Failed to parse webhook event", err)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Malformed webhook payload"))
		return
	}

	db := h.GetDB(c)

	if err := h.webhookService.ProcessEvent(ctx, db, &event); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

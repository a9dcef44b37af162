package handlers

import (
	"crowdtask_backend/internal/services"
	"crowdtask_backend/internal/validator"
)

// AppHandlers содержит все HTTP-обработчики приложения.
type AppHandlers struct {
	Auth         *AuthHandler
	Campaign     *CampaignHandler
	Task         *TaskHandler
	Payout       *PayoutHandler
	Notification *NotificationHandler
	Webhook      *WebhookHandler
}

func NewAppHandlers(sc *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)

	return &AppHandlers{
		Auth:         NewAuthHandler(base, sc.AuthService),
		Campaign:     NewCampaignHandler(base, sc.CampaignService, sc.EscrowService, sc.PayoutService),
		Task:         NewTaskHandler(base, sc.SubmissionService, sc.ReviewService),
		Payout:       NewPayoutHandler(base, sc.PayoutService),
		Notification: NewNotificationHandler(base, sc.NotificationService),
		Webhook:      NewWebhookHandler(base, sc.WebhookService),
	}
}

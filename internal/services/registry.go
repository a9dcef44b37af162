package services

import (
	"crowdtask_backend/internal/email"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	CampaignService     CampaignService
	EscrowService       EscrowService
	SubmissionService   SubmissionService
	ReviewService       ReviewService
	PayoutService       PayoutService
	WebhookService      WebhookService
	NotificationService NotificationService
}

// NewServiceContainer собирает сервисы поверх stateless-репозиториев.
// transfers == nil означает, что переводы шлюзом не исполняются и все
// выплаты уходят в ручную очередь.
func NewServiceContainer(gateway payments.Gateway, emailProvider email.Provider, transfers TransferExecutor) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	campaignRepo := repositories.NewCampaignRepository()
	taskRepo := repositories.NewTaskRepository()
	profileRepo := repositories.NewProfileRepository()
	payoutRepo := repositories.NewPayoutRepository()
	notificationRepo := repositories.NewNotificationRepository()

	notifications := NewNotificationService(notificationRepo, userRepo, emailProvider)
	escrow := NewEscrowService(campaignRepo, gateway, notifications)

	return &ServiceContainer{
		AuthService:         NewAuthService(userRepo),
		CampaignService:     NewCampaignService(campaignRepo, taskRepo, userRepo, notifications),
		EscrowService:       escrow,
		SubmissionService:   NewSubmissionService(taskRepo, campaignRepo, profileRepo, notifications),
		ReviewService:       NewReviewService(taskRepo, profileRepo, notifications),
		PayoutService:       NewPayoutService(payoutRepo, taskRepo, campaignRepo, profileRepo, notifications, transfers),
		WebhookService:      NewWebhookService(escrow, payoutRepo, taskRepo, notifications),
		NotificationService: notifications,
	}
}

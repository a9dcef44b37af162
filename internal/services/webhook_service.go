package services

import (
	"context"
	"encoding/json"
	"time"

	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// WebhookService - реконсилер асинхронных событий шлюза.
// Доставка at-least-once: любая ветка обязана быть идемпотентной
// и терпеть события вне порядка.
type WebhookService interface {
	ProcessEvent(ctx context.Context, db *gorm.DB, event *payments.WebhookEvent) error
}

type webhookService struct {
	escrow        EscrowService
	payoutRepo    repositories.PayoutRepository
	taskRepo      repositories.TaskRepository
	notifications NotificationService

	now func() time.Time
}

func NewWebhookService(
	escrow EscrowService,
	payoutRepo repositories.PayoutRepository,
	taskRepo repositories.TaskRepository,
	notifications NotificationService,
) WebhookService {
	return &webhookService{
		escrow:        escrow,
		payoutRepo:    payoutRepo,
		taskRepo:      taskRepo,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, db *gorm.DB, event *payments.WebhookEvent) error {
	switch event.Type {
	case payments.EventPaymentAuthorized:
		data, err := parseAuthorizationEvent(event)
		if err != nil {
			return err
		}
		s.escrow.HandleAuthorizationOutcome(db, data.AuthRef, true, "")
		return nil

	case payments.EventPaymentFailed:
		data, err := parseAuthorizationEvent(event)
		if err != nil {
			return err
		}
		s.escrow.HandleAuthorizationOutcome(db, data.AuthRef, false, data.Reason)
		return nil

	case payments.EventTransferCreated:
		return s.handleTransferCreated(db, event)

	case payments.EventTransferProcessed:
		return s.handleTransferTerminal(db, event, true)

	case payments.EventTransferFailed:
		return s.handleTransferTerminal(db, event, false)

	default:
		// Незнакомые события подтверждаем, чтобы шлюз не ретраил их вечно
		logger.Warn("Ignoring unknown gateway event", "event_type", event.Type)
		return nil
	}
}

// handleTransferCreated матчит событие с выплатой получателя, у которой
// еще нет ссылки шлюза. Дубль события не перематчится: guard
// "transfer_ref IS NULL" уже не выполняется.
func (s *webhookService) handleTransferCreated(db *gorm.DB, event *payments.WebhookEvent) error {
	data, err := parseTransferEvent(event)
	if err != nil {
		return err
	}

	if data.CampaignID == "" || data.RecipientID == "" {
		logger.Warn("Transfer event without campaign or recipient", "transfer_ref", data.TransferRef)
		return nil
	}

	payout, matched, err := s.payoutRepo.AttachTransfer(db, data.CampaignID, data.RecipientID, data.TransferRef, s.now())
	if err != nil {
		return err
	}
	if !matched {
		// Дубль или выплата уже в терминальном состоянии
		logger.Warn("Transfer event did not match an unreferenced payout",
			"transfer_ref", data.TransferRef, "recipient_id", data.RecipientID)
		return nil
	}

	logger.Info("Payout transfer initiated",
		"payout_id", payout.ID, "transfer_ref", data.TransferRef)
	return nil
}

// handleTransferTerminal закрывает выплату по сохраненной ссылке шлюза.
// Матч строго по transfer_ref: никакого подбора по суммам.
func (s *webhookService) handleTransferTerminal(db *gorm.DB, event *payments.WebhookEvent, success bool) error {
	data, err := parseTransferEvent(event)
	if err != nil {
		return err
	}

	if success {
		payout, matched, err := s.payoutRepo.MarkPaidByTransferRef(db, data.TransferRef, s.now())
		if err != nil {
			return err
		}
		if !matched {
			logger.Warn("Transfer success for unknown or settled payout", "transfer_ref", data.TransferRef)
			return nil
		}

		if payout.Role == models.PayoutRoleWorker {
			if _, err := s.taskRepo.MarkPaid(db, payout.CampaignID, payout.RecipientID); err != nil {
				logger.WithError(err).Error("Failed to mark task paid", "payout_id", payout.ID)
			}
		}

		s.notifications.Emit(db, payout.RecipientID,
			repositories.NotificationTypePayoutPaid,
			"Payout completed",
			"Your payout has arrived.",
			map[string]interface{}{"campaign_id": payout.CampaignID, "payout_id": payout.ID})
		return nil
	}

	reason := data.Reason
	if reason == "" {
		reason = "transfer failed"
	}

	payout, matched, err := s.payoutRepo.MarkFailedByTransferRef(db, data.TransferRef, reason, s.now())
	if err != nil {
		return err
	}
	if !matched {
		logger.Warn("Transfer failure for unknown or settled payout", "transfer_ref", data.TransferRef)
		return nil
	}

	s.notifications.Emit(db, payout.RecipientID,
		repositories.NotificationTypePayoutFailed,
		"Payout failed",
		"Your payout could not be delivered. Our team will follow up.",
		map[string]interface{}{"campaign_id": payout.CampaignID, "payout_id": payout.ID})
	return nil
}

func parseAuthorizationEvent(event *payments.WebhookEvent) (*payments.AuthorizationEventData, error) {
	var data payments.AuthorizationEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return nil, apperrors.NewBadRequestError("Malformed authorization event payload")
	}
	if data.AuthRef == "" {
		return nil, apperrors.NewBadRequestError("Authorization event without reference")
	}
	return &data, nil
}

func parseTransferEvent(event *payments.WebhookEvent) (*payments.TransferEventData, error) {
	var data payments.TransferEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return nil, apperrors.NewBadRequestError("Malformed transfer event payload")
	}
	if data.TransferRef == "" {
		return nil, apperrors.NewBadRequestError("Transfer event without reference")
	}
	return &data, nil
}

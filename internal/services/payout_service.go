package services

import (
	"context"
	"errors"
	"math"
	"time"

	"crowdtask_backend/internal/auth"
	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Бонус за серию принятых работ: +10% к базовой сумме начиная с пятой подряд
const (
	streakBonusRate      = 0.10
	streakBonusThreshold = 5
)

// TransferExecutor - способность реально инициировать перевод.
// Включена или нет - вопрос конфигурации развертывания, а не ветка
// в логике распределения: без executor'а все выплаты уходят в
// ручную очередь.
type TransferExecutor interface {
	Execute(ctx context.Context, payout *models.Payout, destination string) error
}

// GatewayTransferExecutor исполняет переводы через платежный шлюз
type GatewayTransferExecutor struct {
	Gateway payments.Gateway
}

func (e *GatewayTransferExecutor) Execute(ctx context.Context, payout *models.Payout, destination string) error {
	_, err := e.Gateway.Transfer(ctx, payout.AmountPaise, destination, map[string]string{
		"campaign_id":  payout.CampaignID,
		"recipient_id": payout.RecipientID,
		"payout_id":    payout.ID,
	})
	return err
}

type PayoutService interface {
	// DistributeForCampaign превращает одобренные задачи завершенной
	// кампании в строки Payout. Повторный запуск безопасен: уникальный
	// индекс (campaign, recipient, role) не дает создать дубликаты.
	// Отказ по одному получателю не прерывает остальных.
	DistributeForCampaign(ctx context.Context, db *gorm.DB, campaignID string, callerRole models.UserRole) (*dto.DistributePayoutsResponse, error)

	ListRecipientPayouts(db *gorm.DB, recipientID string, limit, offset int) ([]dto.PayoutResponse, error)
	ListManualPending(db *gorm.DB, callerRole models.UserRole) ([]dto.PayoutResponse, error)

	// CompleteManually закрывает выплату, которую оператор провел вне шлюза
	CompleteManually(db *gorm.DB, payoutID string, callerRole models.UserRole) (*dto.PayoutResponse, error)
}

type payoutService struct {
	payoutRepo    repositories.PayoutRepository
	taskRepo      repositories.TaskRepository
	campaignRepo  repositories.CampaignRepository
	profileRepo   repositories.ProfileRepository
	notifications NotificationService
	transfers     TransferExecutor // nil = переводы недоступны, все вручную

	now func() time.Time
}

func NewPayoutService(
	payoutRepo repositories.PayoutRepository,
	taskRepo repositories.TaskRepository,
	campaignRepo repositories.CampaignRepository,
	profileRepo repositories.ProfileRepository,
	notifications NotificationService,
	transfers TransferExecutor,
) PayoutService {
	return &payoutService{
		payoutRepo:    payoutRepo,
		taskRepo:      taskRepo,
		campaignRepo:  campaignRepo,
		profileRepo:   profileRepo,
		notifications: notifications,
		transfers:     transfers,
		now:           time.Now,
	}
}

func (s *payoutService) DistributeForCampaign(ctx context.Context, db *gorm.DB, campaignID string, callerRole models.UserRole) (*dto.DistributePayoutsResponse, error) {
	if !auth.IsOperator(callerRole) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	campaign, err := s.campaignRepo.FindByID(db, campaignID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if campaign.Status != models.CampaignStatusCompleted {
		return nil, apperrors.ErrCampaignNotCompleted
	}

	tasks, err := s.taskRepo.FindApprovedByCampaign(db, campaignID)
	if err != nil {
		return nil, err
	}

	resp := &dto.DistributePayoutsResponse{Success: true}

	for i := range tasks {
		result := s.distributeWorkerPayout(ctx, db, campaign, &tasks[i])
		if !result.Skipped && result.Error == "" {
			resp.TotalPayouts++
		}
		resp.Results = append(resp.Results, result)
	}

	if creatorResult, ok := s.distributeCreatorPayout(db, campaign); ok {
		if !creatorResult.Skipped && creatorResult.Error == "" {
			resp.TotalPayouts++
		}
		resp.Results = append(resp.Results, creatorResult)
	}

	return resp, nil
}

// distributeWorkerPayout обрабатывает одного получателя; ошибки
// записываются в результат и не прерывают остальных.
func (s *payoutService) distributeWorkerPayout(ctx context.Context, db *gorm.DB, campaign *models.Campaign, task *models.Task) dto.PayoutResult {
	result := dto.PayoutResult{
		RecipientID: task.ParticipantID,
		Role:        models.PayoutRoleWorker,
	}

	base := task.PayoutAmountPaise
	if base == 0 {
		base = campaign.PerTaskPaise
	}

	profile, err := s.profileRepo.GetOrCreate(db, task.ParticipantID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Бонус считается от суммы ДО бонуса
	amount := base
	if profile.ConsecutiveAccepted >= streakBonusThreshold {
		amount += int64(math.Round(streakBonusRate * float64(base)))
	}
	result.AmountPaise = amount

	hasDestination := profile.HasPayoutDestination()
	transfersAvailable := s.transfers != nil

	payout := &models.Payout{
		CampaignID:    campaign.ID,
		RecipientID:   task.ParticipantID,
		Role:          models.PayoutRoleWorker,
		AmountPaise:   amount,
		Status:        models.PayoutStatusPending,
		ManualPending: !hasDestination || !transfersAvailable,
	}

	if err := s.payoutRepo.Create(db, payout); err != nil {
		if errors.Is(err, repositories.ErrPayoutAlreadyExists) {
			// Повторный запуск распределения: строка уже есть
			result.Skipped = true
			result.Status = models.PayoutStatusPending
			return result
		}
		result.Error = err.Error()
		return result
	}
	result.Status = models.PayoutStatusPending

	if !hasDestination {
		// Перевод не инициируется: ждем реквизиты от участника
		s.notifications.Emit(db, task.ParticipantID,
			repositories.NotificationTypePayoutManual,
			"Add payout details",
			"You have earned a payout, but no bank account or UPI ID is on file. Add payout details to receive it.",
			map[string]interface{}{"campaign_id": campaign.ID, "payout_id": payout.ID, "amount_paise": amount})
		return result
	}

	if !transfersAvailable {
		s.notifications.Emit(db, task.ParticipantID,
			repositories.NotificationTypePayoutManual,
			"Payout queued",
			"Your payout has been queued and will be processed manually.",
			map[string]interface{}{"campaign_id": campaign.ID, "payout_id": payout.ID, "amount_paise": amount})
		return result
	}

	if err := s.transfers.Execute(ctx, payout, profile.PayoutDestination()); err != nil {
		// Провал фиксируется терминально и виден для ручного разбора,
		// но не останавливает остальных получателей
		logger.WithError(err).Error("Transfer initiation failed",
			"payout_id", payout.ID, "recipient_id", task.ParticipantID)
		if _, markErr := s.payoutRepo.MarkFailed(db, payout.ID, err.Error(), s.now()); markErr != nil {
			logger.WithError(markErr).Error("Failed to mark payout failed", "payout_id", payout.ID)
		}
		result.Status = models.PayoutStatusFailed
		result.Error = err.Error()
		return result
	}

	s.notifications.Emit(db, task.ParticipantID,
		repositories.NotificationTypePayoutInitiated,
		"Payout started",
		"Your payout is on its way.",
		map[string]interface{}{"campaign_id": campaign.ID, "payout_id": payout.ID, "amount_paise": amount})

	return result
}

func (s *payoutService) distributeCreatorPayout(db *gorm.DB, campaign *models.Campaign) (dto.PayoutResult, bool) {
	if campaign.CreatorID == nil || *campaign.CreatorID == "" || campaign.CreatorFeePaise <= 0 {
		return dto.PayoutResult{}, false
	}

	result := dto.PayoutResult{
		RecipientID: *campaign.CreatorID,
		Role:        models.PayoutRoleCreator,
		AmountPaise: campaign.CreatorFeePaise,
	}

	payout := &models.Payout{
		CampaignID:    campaign.ID,
		RecipientID:   *campaign.CreatorID,
		Role:          models.PayoutRoleCreator,
		AmountPaise:   campaign.CreatorFeePaise,
		Status:        models.PayoutStatusPending,
		ManualPending: true,
	}

	if err := s.payoutRepo.Create(db, payout); err != nil {
		if errors.Is(err, repositories.ErrPayoutAlreadyExists) {
			result.Skipped = true
			result.Status = models.PayoutStatusPending
			return result, true
		}
		result.Error = err.Error()
		return result, true
	}
	result.Status = models.PayoutStatusPending

	s.notifications.Emit(db, *campaign.CreatorID,
		repositories.NotificationTypePayoutInitiated,
		"Creator fee payout created",
		"Your creator fee for campaign \""+campaign.Title+"\" has been recorded for payout.",
		map[string]interface{}{"campaign_id": campaign.ID, "payout_id": payout.ID, "amount_paise": campaign.CreatorFeePaise})

	return result, true
}

func (s *payoutService) ListRecipientPayouts(db *gorm.DB, recipientID string, limit, offset int) ([]dto.PayoutResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	payouts, err := s.payoutRepo.FindByRecipient(db, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.PayoutResponse, 0, len(payouts))
	for i := range payouts {
		resp = append(resp, *dto.NewPayoutResponse(&payouts[i]))
	}
	return resp, nil
}

func (s *payoutService) ListManualPending(db *gorm.DB, callerRole models.UserRole) ([]dto.PayoutResponse, error) {
	if !auth.IsOperator(callerRole) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	payouts, err := s.payoutRepo.FindManualPending(db)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.PayoutResponse, 0, len(payouts))
	for i := range payouts {
		resp = append(resp, *dto.NewPayoutResponse(&payouts[i]))
	}
	return resp, nil
}

func (s *payoutService) CompleteManually(db *gorm.DB, payoutID string, callerRole models.UserRole) (*dto.PayoutResponse, error) {
	if !auth.IsOperator(callerRole) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	payout, err := s.payoutRepo.FindByID(db, payoutID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}

	done, err := s.payoutRepo.MarkPaidManually(db, payoutID, s.now())
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, apperrors.ErrInvalidState("payout", "Payout is not awaiting manual completion")
	}

	if payout.Role == models.PayoutRoleWorker {
		if _, err := s.taskRepo.MarkPaid(db, payout.CampaignID, payout.RecipientID); err != nil {
			logger.WithError(err).Error("Failed to mark task paid after manual payout", "payout_id", payoutID)
		}
	}

	s.notifications.Emit(db, payout.RecipientID,
		repositories.NotificationTypePayoutPaid,
		"Payout completed",
		"Your payout has been completed.",
		map[string]interface{}{"campaign_id": payout.CampaignID, "payout_id": payout.ID})

	updated, err := s.payoutRepo.FindByID(db, payoutID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	return dto.NewPayoutResponse(updated), nil
}

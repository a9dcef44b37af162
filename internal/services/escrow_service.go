package services

import (
	"context"
	"time"

	"crowdtask_backend/internal/auth"
	"crowdtask_backend/internal/config"
	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// EscrowService владеет платежной state machine кампании:
// authorize -> capture -> active. Любой вызов шлюза считается
// потенциально имевшим side-effect, поэтому сходимость обеспечивается
// по (campaign, authRef), а не по числу вызовов.
type EscrowService interface {
	RequestAuthorization(ctx context.Context, db *gorm.DB, campaignID, callerID string) (*dto.AuthorizePaymentResponse, error)
	Capture(ctx context.Context, db *gorm.DB, campaignID string, callerRole models.UserRole) (*dto.CapturePaymentResponse, error)

	// HandleAuthorizationOutcome вызывается webhook-реконсилером.
	// success: штамп escrow_funded_at; failure: сброс в draft + очистка ссылки.
	// Оба пути идемпотентны под повторной доставкой.
	HandleAuthorizationOutcome(db *gorm.DB, authRef string, success bool, reason string)
}

type escrowService struct {
	campaignRepo  repositories.CampaignRepository
	gateway       payments.Gateway
	notifications NotificationService

	now func() time.Time
}

func NewEscrowService(
	campaignRepo repositories.CampaignRepository,
	gateway payments.Gateway,
	notifications NotificationService,
) EscrowService {
	return &escrowService{
		campaignRepo:  campaignRepo,
		gateway:       gateway,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *escrowService) RequestAuthorization(ctx context.Context, db *gorm.DB, campaignID, callerID string) (*dto.AuthorizePaymentResponse, error) {
	campaign, err := s.campaignRepo.FindByID(db, campaignID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}

	if campaign.BrandID != callerID {
		return nil, apperrors.NewForbiddenError("Only the campaign's brand may authorize payment")
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, apperrors.ErrCampaignNotDraft
	}
	if campaign.CreatorID == nil || *campaign.CreatorID == "" {
		return nil, apperrors.ErrNoCreatorAssigned
	}

	// Перезагрузка платежной страницы не должна плодить авторизации:
	// живая пере-используемая авторизация возвращается как есть.
	if campaign.HasLiveAuthorization() {
		existing, err := s.gateway.Retrieve(ctx, *campaign.PaymentAuthRef)
		if err != nil {
			return nil, apperrors.ErrUpstreamFailure(err, "escrow", "Failed to check existing authorization")
		}
		if existing.State.Reusable() {
			return &dto.AuthorizePaymentResponse{
				AuthorizationRef: existing.Ref,
				ClientSecret:     existing.ClientSecret,
				AmountPaise:      campaign.BudgetPaise,
			}, nil
		}
		// Старая авторизация терминальна: освобождаем место под новую
		if err := s.campaignRepo.ClearAuthorization(db, campaign.ID, *campaign.PaymentAuthRef); err != nil {
			return nil, err
		}
	}

	authorization, err := s.gateway.Authorize(ctx, campaign.BudgetPaise, config.GetConfig().Payments.Currency,
		map[string]string{"campaign_id": campaign.ID, "brand_id": campaign.BrandID})
	if err != nil {
		return nil, apperrors.ErrUpstreamFailure(err, "escrow", "Payment authorization failed")
	}

	stored, err := s.campaignRepo.SetAuthorizationIfEmpty(db, campaign.ID, authorization.Ref)
	if err != nil {
		return nil, err
	}
	if !stored {
		// Параллельный запрос успел первым: возвращаем его авторизацию,
		// наша остается неиспользованной на стороне шлюза
		current, err := s.campaignRepo.FindByID(db, campaign.ID)
		if err != nil {
			return nil, apperrors.ErrNotFound(err)
		}
		if current.HasLiveAuthorization() {
			logger.Warn("Discarding freshly created authorization, concurrent request won",
				"campaign_id", campaign.ID, "discarded_ref", authorization.Ref)
			return &dto.AuthorizePaymentResponse{
				AuthorizationRef: *current.PaymentAuthRef,
				AmountPaise:      current.BudgetPaise,
			}, nil
		}
		return nil, apperrors.ErrInvalidState("escrow", "Authorization could not be stored")
	}

	return &dto.AuthorizePaymentResponse{
		AuthorizationRef: authorization.Ref,
		ClientSecret:     authorization.ClientSecret,
		AmountPaise:      campaign.BudgetPaise,
	}, nil
}

func (s *escrowService) Capture(ctx context.Context, db *gorm.DB, campaignID string, callerRole models.UserRole) (*dto.CapturePaymentResponse, error) {
	if !auth.IsOperator(callerRole) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	campaign, err := s.campaignRepo.FindByID(db, campaignID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if !campaign.HasLiveAuthorization() {
		return nil, apperrors.ErrNoAuthorization
	}
	if campaign.Status == models.CampaignStatusActive {
		// Повторный capture сходится к тому же состоянию
		return &dto.CapturePaymentResponse{Success: true, CapturedAmountPaise: campaign.BudgetPaise}, nil
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, apperrors.ErrCampaignNotDraft
	}

	result, err := s.gateway.Capture(ctx, *campaign.PaymentAuthRef, campaign.BudgetPaise)
	if err != nil {
		// Состояние кампании не тронуто: операцию можно безопасно повторить
		return nil, apperrors.ErrUpstreamFailure(err, "escrow", "Payment capture failed")
	}
	if result.State != payments.AuthStateCaptured {
		return nil, apperrors.ErrCaptureFailed
	}

	activated, err := s.campaignRepo.MarkActive(db, campaign.ID, s.now())
	if err != nil {
		return nil, err
	}
	if activated {
		s.notifications.Emit(db, campaign.BrandID,
			repositories.NotificationTypeCampaignLive,
			"Campaign is live",
			"Escrow captured. Your campaign \""+campaign.Title+"\" is now live.",
			map[string]interface{}{"campaign_id": campaign.ID})
	}

	return &dto.CapturePaymentResponse{
		Success:             true,
		CapturedAmountPaise: result.CapturedPaise,
	}, nil
}

func (s *escrowService) HandleAuthorizationOutcome(db *gorm.DB, authRef string, success bool, reason string) {
	campaign, err := s.campaignRepo.FindByAuthRef(db, authRef)
	if err != nil {
		// Неизвестная или уже очищенная ссылка: событие дубль или устарело
		logger.Warn("Authorization event for unknown reference", "auth_ref", authRef, "success", success)
		return
	}

	if success {
		stamped, err := s.campaignRepo.StampFundedByAuthRef(db, authRef, s.now())
		if err != nil {
			logger.WithError(err).Error("Failed to stamp escrow funding", "campaign_id", campaign.ID)
			return
		}
		if stamped {
			s.notifications.Emit(db, campaign.BrandID,
				repositories.NotificationTypeCampaignLive,
				"Payment authorized",
				"Funds for campaign \""+campaign.Title+"\" are reserved in escrow.",
				map[string]interface{}{"campaign_id": campaign.ID})
		}
		return
	}

	reset, err := s.campaignRepo.ResetAuthorizationByRef(db, authRef)
	if err != nil {
		logger.WithError(err).Error("Failed to reset failed authorization", "campaign_id", campaign.ID)
		return
	}
	if reset {
		message := "Payment authorization failed. Please try funding the campaign again."
		if reason != "" {
			message = "Payment authorization failed: " + reason + ". Please try funding the campaign again."
		}
		s.notifications.Emit(db, campaign.BrandID,
			repositories.NotificationTypeEscrowFailed,
			"Payment authorization failed",
			message,
			map[string]interface{}{"campaign_id": campaign.ID})
	}
}

package services

import (
	"errors"
	"math"
	"time"

	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Доли комиссий от фонда заданий (perTask × target)
const (
	creatorFeeRate  = 0.10
	platformFeeRate = 0.05
)

type CampaignService interface {
	CreateCampaign(db *gorm.DB, brandID string, req *dto.CreateCampaignRequest) (*dto.CampaignResponse, error)
	GetCampaign(db *gorm.DB, campaignID string) (*dto.CampaignResponse, error)
	ListBrandCampaigns(db *gorm.DB, brandID string, limit, offset int) ([]dto.CampaignResponse, error)

	// JoinCampaign создает задачу участника и атомарно занимает слот.
	// Пара (кампания, участник) уникальна.
	JoinCampaign(db *gorm.DB, campaignID, workerID string) (*dto.TaskResponse, error)

	// CompleteCampaign - CAS active -> completed (оператор или фоновый воркер)
	CompleteCampaign(db *gorm.DB, campaignID string) (*dto.CampaignResponse, error)
}

type campaignService struct {
	campaignRepo  repositories.CampaignRepository
	taskRepo      repositories.TaskRepository
	userRepo      repositories.UserRepository
	notifications NotificationService

	now func() time.Time
}

func NewCampaignService(
	campaignRepo repositories.CampaignRepository,
	taskRepo repositories.TaskRepository,
	userRepo repositories.UserRepository,
	notifications NotificationService,
) CampaignService {
	return &campaignService{
		campaignRepo:  campaignRepo,
		taskRepo:      taskRepo,
		userRepo:      userRepo,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *campaignService) CreateCampaign(db *gorm.DB, brandID string, req *dto.CreateCampaignRequest) (*dto.CampaignResponse, error) {
	brand, err := s.userRepo.FindByID(db, brandID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if brand.Role != models.UserRoleBrand {
		return nil, apperrors.ErrInsufficientPermissions
	}

	if req.CreatorID != nil {
		creator, err := s.userRepo.FindByID(db, *req.CreatorID)
		if err != nil {
			return nil, apperrors.NewBadRequestError("Assigned creator does not exist")
		}
		if creator.Role != models.UserRoleCreator {
			return nil, apperrors.NewBadRequestError("Assigned user is not a creator")
		}
	}

	taskMinSeconds := req.TaskMinSeconds
	if taskMinSeconds == 0 {
		taskMinSeconds = 60
	}

	// Бюджет фиксируется при создании и дальше не пересчитывается:
	// budget = perTask×target + creatorFee + platformFee
	taskPool := req.PerTaskPaise * int64(req.TargetParticipants)
	var creatorFee int64
	if req.CreatorID != nil {
		creatorFee = int64(math.Round(creatorFeeRate * float64(taskPool)))
	}
	platformFee := int64(math.Round(platformFeeRate * float64(taskPool)))

	campaign := &models.Campaign{
		BrandID:            brandID,
		CreatorID:          req.CreatorID,
		Title:              req.Title,
		Description:        req.Description,
		BudgetPaise:        taskPool + creatorFee + platformFee,
		PerTaskPaise:       req.PerTaskPaise,
		CreatorFeePaise:    creatorFee,
		PlatformFeePaise:   platformFee,
		TargetParticipants: req.TargetParticipants,
		TaskMinSeconds:     taskMinSeconds,
		Status:             models.CampaignStatusDraft,
	}

	if err := s.campaignRepo.Create(db, campaign); err != nil {
		return nil, err
	}

	return dto.NewCampaignResponse(campaign), nil
}

func (s *campaignService) GetCampaign(db *gorm.DB, campaignID string) (*dto.CampaignResponse, error) {
	campaign, err := s.campaignRepo.FindByID(db, campaignID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	return dto.NewCampaignResponse(campaign), nil
}

func (s *campaignService) ListBrandCampaigns(db *gorm.DB, brandID string, limit, offset int) ([]dto.CampaignResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	campaigns, err := s.campaignRepo.FindByBrand(db, brandID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.CampaignResponse, 0, len(campaigns))
	for i := range campaigns {
		resp = append(resp, *dto.NewCampaignResponse(&campaigns[i]))
	}
	return resp, nil
}

func (s *campaignService) JoinCampaign(db *gorm.DB, campaignID, workerID string) (*dto.TaskResponse, error) {
	var task *models.Task

	err := db.Transaction(func(tx *gorm.DB) error {
		claimed, err := s.campaignRepo.ClaimParticipantSlot(tx, campaignID)
		if err != nil {
			return err
		}
		if !claimed {
			// Слот не занят: выясняем почему для точной ошибки
			campaign, err := s.campaignRepo.FindByID(tx, campaignID)
			if err != nil {
				return apperrors.ErrNotFound(err)
			}
			if campaign.Status != models.CampaignStatusActive {
				return apperrors.ErrCampaignNotActive
			}
			return apperrors.ErrCampaignFull
		}

		task = &models.Task{
			CampaignID:    campaignID,
			ParticipantID: workerID,
			Status:        models.TaskStatusInProgress,
			StartedAt:     s.now(),
		}
		if err := s.taskRepo.Create(tx, task); err != nil {
			if errors.Is(err, repositories.ErrTaskAlreadyExists) {
				// Откат транзакции вернет занятый слот
				return apperrors.ErrAlreadyJoined
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *campaignService) CompleteCampaign(db *gorm.DB, campaignID string) (*dto.CampaignResponse, error) {
	completed, err := s.campaignRepo.MarkCompleted(db, campaignID, s.now())
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaignRepo.FindByID(db, campaignID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}

	if !completed {
		if campaign.Status == models.CampaignStatusCompleted {
			// Уже завершена: повторный вызов сходится к тому же состоянию
			return dto.NewCampaignResponse(campaign), nil
		}
		return nil, apperrors.ErrCampaignNotActive
	}
	campaign.Status = models.CampaignStatusCompleted

	s.notifications.Emit(db, campaign.BrandID,
		repositories.NotificationTypeCampaignComplete,
		"Campaign completed",
		"Your campaign \""+campaign.Title+"\" has been completed. Payout distribution will follow.",
		map[string]interface{}{"campaign_id": campaign.ID})

	return dto.NewCampaignResponse(campaign), nil
}

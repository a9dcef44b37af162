package repositories

import (
	"errors"
	"time"

	"crowdtask_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskAlreadyExists = errors.New("task already exists for this participant")
)

// TaskVerdict - итог валидации сабмишена, применяется одним CAS-апдейтом
type TaskVerdict struct {
	Status            models.TaskStatus // submitted (принято) или rejected
	Responses         datatypes.JSON
	TimeSpentSeconds  int
	SubmittedAt       time.Time
	QualityScore      int
	RejectionCategory string
	RejectionReason   string
	PayoutAmountPaise int64
	SpotCheck         bool
}

type TaskRepository interface {
	Create(db *gorm.DB, task *models.Task) error
	FindByID(db *gorm.DB, id string) (*models.Task, error)
	FindByCampaignAndParticipant(db *gorm.DB, campaignID, participantID string) (*models.Task, error)
	FindByCampaign(db *gorm.DB, campaignID string) ([]models.Task, error)
	FindByParticipant(db *gorm.DB, participantID string, limit, offset int) ([]models.Task, error)

	// CAS in_progress -> submitted|rejected; false = вердикт уже вынесен.
	// Валидация задачи строго одноразовая.
	ApplyVerdict(db *gorm.DB, id string, verdict TaskVerdict) (bool, error)

	// CAS submitted -> approved|rejected (решение ревьюера).
	// При reject обнуляется выплата и записывается причина.
	ApplyReview(db *gorm.DB, id string, to models.TaskStatus, rejectionReason string) (bool, error)

	// CAS approved -> paid (после подтверждения выплаты шлюзом)
	MarkPaid(db *gorm.DB, campaignID, participantID string) (bool, error)

	// Тексты сабмишенов кампании для проверки на дубликаты
	// (submitted, approved и paid считаются занятыми ответами)
	FindAnsweredByCampaign(db *gorm.DB, campaignID string, excludeTaskID string) ([]models.Task, error)

	FindApprovedByCampaign(db *gorm.DB, campaignID string) ([]models.Task, error)
	CountByStatus(db *gorm.DB, campaignID string, status models.TaskStatus) (int64, error)
	CountDecided(db *gorm.DB, campaignID string) (int64, error)
}

type TaskRepositoryImpl struct{}

func NewTaskRepository() TaskRepository {
	return &TaskRepositoryImpl{}
}

func (r *TaskRepositoryImpl) Create(db *gorm.DB, task *models.Task) error {
	if err := db.Create(task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTaskAlreadyExists
		}
		return err
	}
	return nil
}

func (r *TaskRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepositoryImpl) FindByCampaignAndParticipant(db *gorm.DB, campaignID, participantID string) (*models.Task, error) {
	var task models.Task
	err := db.First(&task, "campaign_id = ? AND participant_id = ?", campaignID, participantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepositoryImpl) FindByCampaign(db *gorm.DB, campaignID string) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("campaign_id = ?", campaignID).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) FindByParticipant(db *gorm.DB, participantID string, limit, offset int) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("participant_id = ?", participantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) ApplyVerdict(db *gorm.DB, id string, verdict TaskVerdict) (bool, error) {
	res := db.Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskStatusInProgress).
		Updates(map[string]interface{}{
			"status":              verdict.Status,
			"responses":           verdict.Responses,
			"time_spent_seconds":  verdict.TimeSpentSeconds,
			"submitted_at":        verdict.SubmittedAt,
			"quality_score":       verdict.QualityScore,
			"rejection_category":  verdict.RejectionCategory,
			"rejection_reason":    verdict.RejectionReason,
			"payout_amount_paise": verdict.PayoutAmountPaise,
			"spot_check":          verdict.SpotCheck,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepositoryImpl) ApplyReview(db *gorm.DB, id string, to models.TaskStatus, rejectionReason string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == models.TaskStatusRejected {
		updates["rejection_category"] = models.RejectionLowQuality
		updates["rejection_reason"] = rejectionReason
		updates["payout_amount_paise"] = int64(0)
	}

	res := db.Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskStatusSubmitted).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepositoryImpl) MarkPaid(db *gorm.DB, campaignID, participantID string) (bool, error) {
	res := db.Model(&models.Task{}).
		Where("campaign_id = ? AND participant_id = ? AND status = ?",
			campaignID, participantID, models.TaskStatusApproved).
		Update("status", models.TaskStatusPaid)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepositoryImpl) FindAnsweredByCampaign(db *gorm.DB, campaignID string, excludeTaskID string) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("campaign_id = ? AND id <> ? AND status IN ?",
		campaignID, excludeTaskID,
		[]models.TaskStatus{models.TaskStatusSubmitted, models.TaskStatusApproved, models.TaskStatusPaid}).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) FindApprovedByCampaign(db *gorm.DB, campaignID string) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("campaign_id = ? AND status = ?", campaignID, models.TaskStatusApproved).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) CountByStatus(db *gorm.DB, campaignID string, status models.TaskStatus) (int64, error) {
	var count int64
	err := db.Model(&models.Task{}).
		Where("campaign_id = ? AND status = ?", campaignID, status).
		Count(&count).Error
	return count, err
}

func (r *TaskRepositoryImpl) CountDecided(db *gorm.DB, campaignID string) (int64, error) {
	var count int64
	err := db.Model(&models.Task{}).
		Where("campaign_id = ? AND status IN ?", campaignID,
			[]models.TaskStatus{models.TaskStatusApproved, models.TaskStatusRejected, models.TaskStatusPaid}).
		Count(&count).Error
	return count, err
}

package repositories

import (
	"errors"
	"time"

	"crowdtask_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
)

type CampaignRepository interface {
	Create(db *gorm.DB, campaign *models.Campaign) error
	FindByID(db *gorm.DB, id string) (*models.Campaign, error)
	FindByBrand(db *gorm.DB, brandID string, limit, offset int) ([]models.Campaign, error)
	FindByStatus(db *gorm.DB, status models.CampaignStatus) ([]models.Campaign, error)
	Update(db *gorm.DB, campaign *models.Campaign) error

	// CAS-переход статуса: true, если переход случился именно в этом вызове
	UpdateStatusIf(db *gorm.DB, id string, from, to models.CampaignStatus) (bool, error)

	// Сохранение авторизации. Условие payment_auth_ref IS NULL защищает
	// от гонки двух параллельных запросов authorize-payment.
	SetAuthorizationIfEmpty(db *gorm.DB, id, authRef string) (bool, error)
	ClearAuthorization(db *gorm.DB, id, authRef string) error
	FindByAuthRef(db *gorm.DB, authRef string) (*models.Campaign, error)

	// Активация после успешного capture: статус и момент старта одним апдейтом
	MarkActive(db *gorm.DB, id string, startsAt time.Time) (bool, error)

	// Отметка фондирования по ссылке авторизации (идемпотентно: повторный
	// webhook перештампует тем же значением)
	StampFundedByAuthRef(db *gorm.DB, authRef string, fundedAt time.Time) (bool, error)

	// Сброс после провала авторизации: кампания возвращается в draft,
	// ссылка очищается, можно пробовать заново. Затрагивает только
	// незафондированный draft, см. реализацию.
	ResetAuthorizationByRef(db *gorm.DB, authRef string) (bool, error)

	// Инкремент слота участника, только если кампания активна и слоты остались
	ClaimParticipantSlot(db *gorm.DB, id string) (bool, error)

	// Завершение: CAS active -> completed с отметкой времени
	MarkCompleted(db *gorm.DB, id string, completedAt time.Time) (bool, error)

	// Кампании, у которых заполнены все слоты (кандидаты на завершение)
	FindFull(db *gorm.DB) ([]models.Campaign, error)
}

type CampaignRepositoryImpl struct{}

func NewCampaignRepository() CampaignRepository {
	return &CampaignRepositoryImpl{}
}

func (r *CampaignRepositoryImpl) Create(db *gorm.DB, campaign *models.Campaign) error {
	return db.Create(campaign).Error
}

func (r *CampaignRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := db.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepositoryImpl) FindByBrand(db *gorm.DB, brandID string, limit, offset int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := db.Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&campaigns).Error
	return campaigns, err
}

func (r *CampaignRepositoryImpl) FindByStatus(db *gorm.DB, status models.CampaignStatus) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := db.Where("status = ?", status).Order("created_at DESC").Find(&campaigns).Error
	return campaigns, err
}

func (r *CampaignRepositoryImpl) Update(db *gorm.DB, campaign *models.Campaign) error {
	return db.Save(campaign).Error
}

func (r *CampaignRepositoryImpl) UpdateStatusIf(db *gorm.DB, id string, from, to models.CampaignStatus) (bool, error) {
	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) SetAuthorizationIfEmpty(db *gorm.DB, id, authRef string) (bool, error) {
	res := db.Model(&models.Campaign{}).
		Where("id = ? AND payment_auth_ref IS NULL", id).
		Update("payment_auth_ref", authRef)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) ClearAuthorization(db *gorm.DB, id, authRef string) error {
	// Сбрасываем только если в строке все еще лежит именно эта авторизация
	return db.Model(&models.Campaign{}).
		Where("id = ? AND payment_auth_ref = ?", id, authRef).
		Update("payment_auth_ref", nil).Error
}

func (r *CampaignRepositoryImpl) FindByAuthRef(db *gorm.DB, authRef string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := db.First(&campaign, "payment_auth_ref = ?", authRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepositoryImpl) MarkActive(db *gorm.DB, id string, startsAt time.Time) (bool, error) {
	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignStatusDraft).
		Updates(map[string]interface{}{
			"status":    models.CampaignStatusActive,
			"starts_at": startsAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) StampFundedByAuthRef(db *gorm.DB, authRef string, fundedAt time.Time) (bool, error) {
	res := db.Model(&models.Campaign{}).
		Where("payment_auth_ref = ? AND escrow_funded_at IS NULL", authRef).
		Update("escrow_funded_at", fundedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) ResetAuthorizationByRef(db *gorm.DB, authRef string) (bool, error) {
	// Шлюз не гарантирует порядок доставки: запоздавший payment.failed
	// от ранней неудачной попытки не должен откатывать кампанию, которая
	// уже зафондирована или захвачена
	res := db.Model(&models.Campaign{}).
		Where("payment_auth_ref = ? AND status = ? AND escrow_funded_at IS NULL",
			authRef, models.CampaignStatusDraft).
		Updates(map[string]interface{}{
			"status":           models.CampaignStatusDraft,
			"payment_auth_ref": nil,
			"escrow_funded_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) ClaimParticipantSlot(db *gorm.DB, id string) (bool, error) {
	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ? AND current_participants < target_participants",
			id, models.CampaignStatusActive).
		Update("current_participants", gorm.Expr("current_participants + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) MarkCompleted(db *gorm.DB, id string, completedAt time.Time) (bool, error) {
	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignStatusActive).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusCompleted,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CampaignRepositoryImpl) FindFull(db *gorm.DB) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := db.Where("status = ? AND current_participants >= target_participants",
		models.CampaignStatusActive).
		// Не закрываем кампанию, пока есть нерешенные задания
		Where("NOT EXISTS (SELECT 1 FROM tasks WHERE tasks.campaign_id = campaigns.id AND tasks.status IN ?)",
			[]models.TaskStatus{models.TaskStatusInProgress, models.TaskStatusSubmitted}).
		Find(&campaigns).Error
	return campaigns, err
}

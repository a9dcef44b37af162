package repositories

import (
	"errors"
	"time"

	"crowdtask_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrPayoutAlreadyExists = errors.New("payout already exists for this recipient")
)

type PayoutRepository interface {
	// Create полагается на уникальный индекс (campaign_id, recipient_id, role):
	// повторная вставка той же выплаты возвращает ErrPayoutAlreadyExists.
	Create(db *gorm.DB, payout *models.Payout) error

	FindByID(db *gorm.DB, id string) (*models.Payout, error)
	FindByCampaign(db *gorm.DB, campaignID string) ([]models.Payout, error)
	FindByRecipient(db *gorm.DB, recipientID string, limit, offset int) ([]models.Payout, error)
	FindByCampaignRecipientRole(db *gorm.DB, campaignID, recipientID string, role models.PayoutRole) (*models.Payout, error)
	FindByTransferRef(db *gorm.DB, transferRef string) (*models.Payout, error)
	FindManualPending(db *gorm.DB) ([]models.Payout, error)

	// AttachTransfer матчит событие transfer.created: одна выплата получателя
	// по кампании, еще без ссылки шлюза, переводится в processing и получает
	// ссылку. Условие transfer_ref IS NULL защищает от дублей события.
	AttachTransfer(db *gorm.DB, campaignID, recipientID, transferRef string, initiatedAt time.Time) (*models.Payout, bool, error)

	// Фиксация провала синхронной инициации перевода
	MarkFailed(db *gorm.DB, id, reason string, failedAt time.Time) (bool, error)

	// Терминальные переходы по ссылке шлюза; не трогают уже терминальные строки
	MarkPaidByTransferRef(db *gorm.DB, transferRef string, completedAt time.Time) (*models.Payout, bool, error)
	MarkFailedByTransferRef(db *gorm.DB, transferRef, reason string, failedAt time.Time) (*models.Payout, bool, error)

	// Ручное завершение выплаты оператором (получатель без реквизитов)
	MarkPaidManually(db *gorm.DB, id string, completedAt time.Time) (bool, error)
}

type PayoutRepositoryImpl struct{}

func NewPayoutRepository() PayoutRepository {
	return &PayoutRepositoryImpl{}
}

func (r *PayoutRepositoryImpl) Create(db *gorm.DB, payout *models.Payout) error {
	if err := db.Create(payout).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPayoutAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PayoutRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Payout, error) {
	var payout models.Payout
	if err := db.First(&payout, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepositoryImpl) FindByCampaign(db *gorm.DB, campaignID string) ([]models.Payout, error) {
	var payouts []models.Payout
	err := db.Where("campaign_id = ?", campaignID).Order("created_at ASC").Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepositoryImpl) FindByRecipient(db *gorm.DB, recipientID string, limit, offset int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepositoryImpl) FindByCampaignRecipientRole(db *gorm.DB, campaignID, recipientID string, role models.PayoutRole) (*models.Payout, error) {
	var payout models.Payout
	err := db.First(&payout, "campaign_id = ? AND recipient_id = ? AND role = ?",
		campaignID, recipientID, role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepositoryImpl) FindByTransferRef(db *gorm.DB, transferRef string) (*models.Payout, error) {
	var payout models.Payout
	if err := db.First(&payout, "transfer_ref = ?", transferRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepositoryImpl) FindManualPending(db *gorm.DB) ([]models.Payout, error) {
	var payouts []models.Payout
	err := db.Where("manual_pending = ? AND status = ?", true, models.PayoutStatusPending).
		Order("created_at ASC").
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepositoryImpl) AttachTransfer(db *gorm.DB, campaignID, recipientID, transferRef string, initiatedAt time.Time) (*models.Payout, bool, error) {
	res := db.Model(&models.Payout{}).
		Where("campaign_id = ? AND recipient_id = ? AND transfer_ref IS NULL AND status IN ?",
			campaignID, recipientID,
			[]models.PayoutStatus{models.PayoutStatusPending, models.PayoutStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       models.PayoutStatusProcessing,
			"transfer_ref": transferRef,
			"initiated_at": initiatedAt,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}

	payout, err := r.FindByTransferRef(db, transferRef)
	if err != nil {
		return nil, false, err
	}
	return payout, true, nil
}

func (r *PayoutRepositoryImpl) MarkFailed(db *gorm.DB, id, reason string, failedAt time.Time) (bool, error) {
	res := db.Model(&models.Payout{}).
		Where("id = ? AND status IN ?", id,
			[]models.PayoutStatus{models.PayoutStatusPending, models.PayoutStatusProcessing}).
		Updates(map[string]interface{}{
			"status":         models.PayoutStatusFailed,
			"failure_reason": reason,
			"failed_at":      failedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PayoutRepositoryImpl) MarkPaidByTransferRef(db *gorm.DB, transferRef string, completedAt time.Time) (*models.Payout, bool, error) {
	res := db.Model(&models.Payout{}).
		Where("transfer_ref = ? AND status NOT IN ?", transferRef,
			[]models.PayoutStatus{models.PayoutStatusPaid, models.PayoutStatusFailed}).
		Updates(map[string]interface{}{
			"status":       models.PayoutStatusPaid,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}

	payout, err := r.FindByTransferRef(db, transferRef)
	if err != nil {
		return nil, false, err
	}
	return payout, true, nil
}

func (r *PayoutRepositoryImpl) MarkFailedByTransferRef(db *gorm.DB, transferRef, reason string, failedAt time.Time) (*models.Payout, bool, error) {
	res := db.Model(&models.Payout{}).
		Where("transfer_ref = ? AND status NOT IN ?", transferRef,
			[]models.PayoutStatus{models.PayoutStatusPaid, models.PayoutStatusFailed}).
		Updates(map[string]interface{}{
			"status":         models.PayoutStatusFailed,
			"failure_reason": reason,
			"failed_at":      failedAt,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}

	payout, err := r.FindByTransferRef(db, transferRef)
	if err != nil {
		return nil, false, err
	}
	return payout, true, nil
}

func (r *PayoutRepositoryImpl) MarkPaidManually(db *gorm.DB, id string, completedAt time.Time) (bool, error) {
	res := db.Model(&models.Payout{}).
		Where("id = ? AND manual_pending = ? AND status = ?", id, true, models.PayoutStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PayoutStatusPaid,
			"manual_pending": false,
			"completed_at":   completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package repositories

import (
	"errors"

	"crowdtask_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = errors.New("community profile not found")
)

type ProfileRepository interface {
	Create(db *gorm.DB, profile *models.CommunityProfile) error
	FindByUserID(db *gorm.DB, userID string) (*models.CommunityProfile, error)

	// GetOrCreate возвращает профиль, создавая его с дефолтами при первом обращении
	GetOrCreate(db *gorm.DB, userID string) (*models.CommunityProfile, error)

	Update(db *gorm.DB, profile *models.CommunityProfile) error
	UpdateDestination(db *gorm.DB, userID, bankAccount, upiID string) error

	// ApplyVerdict двигает репутацию после вердикта валидатора:
	// +2 при accept (потолок 100), -5 при reject (пол 0),
	// total_tasks_completed++ только при accept. Серию не трогает.
	ApplyVerdict(db *gorm.DB, userID string, accepted bool) (*models.CommunityProfile, error)

	// ApplyReviewOutcome - единственный писатель consecutive_accepted:
	// инкремент при approve, сброс в ноль при reject.
	ApplyReviewOutcome(db *gorm.DB, userID string, approved bool) (*models.CommunityProfile, error)
}

type ProfileRepositoryImpl struct{}

func NewProfileRepository() ProfileRepository {
	return &ProfileRepositoryImpl{}
}

func (r *ProfileRepositoryImpl) Create(db *gorm.DB, profile *models.CommunityProfile) error {
	return db.Create(profile).Error
}

func (r *ProfileRepositoryImpl) FindByUserID(db *gorm.DB, userID string) (*models.CommunityProfile, error) {
	var profile models.CommunityProfile
	if err := db.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) GetOrCreate(db *gorm.DB, userID string) (*models.CommunityProfile, error) {
	profile, err := r.FindByUserID(db, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	fresh := &models.CommunityProfile{
		UserID:       userID,
		QualityScore: 50,
	}
	if err := db.Create(fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Параллельный запрос успел создать профиль раньше нас
			return r.FindByUserID(db, userID)
		}
		return nil, err
	}
	return fresh, nil
}

func (r *ProfileRepositoryImpl) Update(db *gorm.DB, profile *models.CommunityProfile) error {
	return db.Save(profile).Error
}

func (r *ProfileRepositoryImpl) UpdateDestination(db *gorm.DB, userID, bankAccount, upiID string) error {
	res := db.Model(&models.CommunityProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"bank_account": bankAccount,
			"upi_id":       upiID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepositoryImpl) ApplyVerdict(db *gorm.DB, userID string, accepted bool) (*models.CommunityProfile, error) {
	profile, err := r.GetOrCreate(db, userID)
	if err != nil {
		return nil, err
	}

	delta := 2
	if !accepted {
		delta = -5
	}

	score := profile.QualityScore + delta
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	profile.QualityScore = score

	if accepted {
		profile.TotalTasksCompleted++
	}

	if err := db.Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepositoryImpl) ApplyReviewOutcome(db *gorm.DB, userID string, approved bool) (*models.CommunityProfile, error) {
	profile, err := r.GetOrCreate(db, userID)
	if err != nil {
		return nil, err
	}

	if approved {
		profile.ConsecutiveAccepted++
	} else {
		profile.ConsecutiveAccepted = 0
	}

	if err := db.Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

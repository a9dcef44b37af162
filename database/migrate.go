package database

import (
	"crowdtask_backend/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate выполняет миграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Campaign{},
		&models.Task{},
		&models.CommunityProfile{},
		&models.Payout{},
		&models.Notification{},
	)
}

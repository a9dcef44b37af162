package services

import (
	"encoding/json"
	"time"

	"crowdtask_backend/internal/email"
	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationService interface {
	// Emit - fire-and-forget. Ошибки записи/отправки логируются и никогда
	// не прерывают вызывающую операцию.
	Emit(db *gorm.DB, userID, notificationType, title, message string, data map[string]interface{})

	GetUserNotifications(db *gorm.DB, userID string, limit, offset int) (*dto.NotificationListResponse, error)
	MarkAsRead(db *gorm.DB, userID, notificationID string) error
	MarkAllAsRead(db *gorm.DB, userID string) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	emailProvider    email.Provider
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	emailProvider email.Provider,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		emailProvider:    emailProvider,
	}
}

func (s *notificationService) Emit(db *gorm.DB, userID, notificationType, title, message string, data map[string]interface{}) {
	var dataJSON datatypes.JSON
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			logger.WithError(err).Warn("Failed to marshal notification data", "type", notificationType)
		} else {
			dataJSON = datatypes.JSON(raw)
		}
	}

	notification := &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Data:    dataJSON,
	}

	if err := s.notificationRepo.Create(db, notification); err != nil {
		logger.WithError(err).Warn("Failed to persist notification",
			"user_id", userID, "type", notificationType)
		return
	}

	if s.emailProvider == nil {
		return
	}

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		logger.WithError(err).Warn("Failed to load user for notification email", "user_id", userID)
		return
	}

	if err := s.emailProvider.Send(user.Email, title, message); err != nil {
		logger.WithError(err).Warn("Failed to send notification email",
			"user_id", userID, "type", notificationType)
	}
}

func (s *notificationService) GetUserNotifications(db *gorm.DB, userID string, limit, offset int) (*dto.NotificationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	notifications, err := s.notificationRepo.FindByUser(db, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	unread, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.NotificationListResponse{
		Notifications: make([]dto.NotificationResponse, 0, len(notifications)),
		UnreadCount:   unread,
	}
	for i := range notifications {
		resp.Notifications = append(resp.Notifications, *dto.NewNotificationResponse(&notifications[i]))
	}
	return resp, nil
}

func (s *notificationService) MarkAsRead(db *gorm.DB, userID, notificationID string) error {
	notification, err := s.notificationRepo.FindByID(db, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return repositories.ErrNotificationNotFound
	}
	if notification.IsRead {
		return nil
	}
	return s.notificationRepo.MarkAsRead(db, notificationID, time.Now())
}

func (s *notificationService) MarkAllAsRead(db *gorm.DB, userID string) error {
	return s.notificationRepo.MarkAllAsRead(db, userID, time.Now())
}

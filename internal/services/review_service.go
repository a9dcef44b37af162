package services

import (
	"crowdtask_backend/internal/auth"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ReviewService - операторский шаг submitted -> approved | rejected.
// Единственный писатель consecutive_accepted: валидатор и распределитель
// выплат серию не трогают, распределитель ее только читает.
type ReviewService interface {
	Review(db *gorm.DB, taskID string, callerRole models.UserRole, req *dto.ReviewTaskRequest) (*dto.TaskResponse, error)
}

type reviewService struct {
	taskRepo      repositories.TaskRepository
	profileRepo   repositories.ProfileRepository
	notifications NotificationService
}

func NewReviewService(
	taskRepo repositories.TaskRepository,
	profileRepo repositories.ProfileRepository,
	notifications NotificationService,
) ReviewService {
	return &reviewService{
		taskRepo:      taskRepo,
		profileRepo:   profileRepo,
		notifications: notifications,
	}
}

func (s *reviewService) Review(db *gorm.DB, taskID string, callerRole models.UserRole, req *dto.ReviewTaskRequest) (*dto.TaskResponse, error) {
	if !auth.IsOperator(callerRole) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	task, err := s.taskRepo.FindByID(db, taskID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, apperrors.ErrTaskNotSubmitted
	}

	approved := req.Decision == "approve"
	to := models.TaskStatusRejected
	if approved {
		to = models.TaskStatusApproved
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		applied, err := s.taskRepo.ApplyReview(tx, task.ID, to, req.Reason)
		if err != nil {
			return err
		}
		if !applied {
			return apperrors.ErrTaskNotSubmitted
		}

		if _, err := s.profileRepo.ApplyReviewOutcome(tx, task.ParticipantID, approved); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyReviewResult(db, task, approved)

	reviewed, err := s.taskRepo.FindByID(db, task.ID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	return dto.NewTaskResponse(reviewed), nil
}

func (s *reviewService) notifyReviewResult(db *gorm.DB, task *models.Task, approved bool) {
	title := "Work approved"
	message := "Your submission has been approved. Payout will be included in the next distribution."
	if !approved {
		title = "Work rejected"
		message = "Your submission was rejected during review."
	}
	s.notifications.Emit(db, task.ParticipantID,
		repositories.NotificationTypeSubmissionResult,
		title,
		message,
		map[string]interface{}{"campaign_id": task.CampaignID, "task_id": task.ID, "approved": approved})
}

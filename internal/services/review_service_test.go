package services

import (
	"testing"
	"time"

	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/internal/services/dto"
	"crowdtask_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReviewFixture(t *testing.T) (*gorm.DB, ReviewService, *models.User, *models.Task) {
	t.Helper()

	db := newTestDB(t)
	brand := createTestUser(t, db, models.UserRoleBrand)
	worker := createTestUser(t, db, models.UserRoleWorker)
	campaign := createTestCampaign(t, db, brand.ID, nil)
	task := createTestTask(t, db, campaign.ID, worker.ID, models.TaskStatusSubmitted, time.Now().Add(-time.Hour))

	svc := NewReviewService(
		repositories.NewTaskRepository(),
		repositories.NewProfileRepository(),
		newTestNotifications(),
	)
	return db, svc, worker, task
}

func TestReview_Approve(t *testing.T) {
	db, svc, worker, task := newReviewFixture(t)

	resp, err := svc.Review(db, task.ID, models.UserRoleAdmin, &dto.ReviewTaskRequest{Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusApproved, resp.Status)

	profile := reloadProfile(t, db, worker.ID)
	assert.Equal(t, 1, profile.ConsecutiveAccepted)
}

func TestReview_Reject(t *testing.T) {
	db, svc, worker, task := newReviewFixture(t)

	// Накопленная серия сгорает при отклонении
	require.NoError(t, db.Create(&models.CommunityProfile{
		UserID: worker.ID, QualityScore: 50, ConsecutiveAccepted: 7,
	}).Error)

	resp, err := svc.Review(db, task.ID, models.UserRoleAdmin, &dto.ReviewTaskRequest{
		Decision: "reject",
		Reason:   "does not answer the question",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRejected, resp.Status)
	assert.Equal(t, models.RejectionLowQuality, resp.RejectionCategory)
	assert.Equal(t, "does not answer the question", resp.RejectionReason)
	assert.Equal(t, int64(0), resp.PayoutAmountPaise)

	profile := reloadProfile(t, db, worker.ID)
	assert.Equal(t, 0, profile.ConsecutiveAccepted)
}

func TestReview_NonOperatorForbidden(t *testing.T) {
	db, svc, _, task := newReviewFixture(t)

	_, err := svc.Review(db, task.ID, models.UserRoleWorker, &dto.ReviewTaskRequest{Decision: "approve"})
	require.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
}

func TestReview_OnlySubmittedTasks(t *testing.T) {
	db, svc, _, task := newReviewFixture(t)

	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TaskStatusInProgress).Error)

	_, err := svc.Review(db, task.ID, models.UserRoleAdmin, &dto.ReviewTaskRequest{Decision: "approve"})
	require.ErrorIs(t, err, apperrors.ErrTaskNotSubmitted)
}

func TestReview_SecondReviewRejected(t *testing.T) {
	db, svc, _, task := newReviewFixture(t)

	_, err := svc.Review(db, task.ID, models.UserRoleAdmin, &dto.ReviewTaskRequest{Decision: "approve"})
	require.NoError(t, err)

	_, err = svc.Review(db, task.ID, models.UserRoleAdmin, &dto.ReviewTaskRequest{Decision: "reject"})
	require.ErrorIs(t, err, apperrors.ErrTaskNotSubmitted)
}

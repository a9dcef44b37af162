package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type payoutFixture struct {
	db       *gorm.DB
	executor *fakeExecutor
	svc      PayoutService
	brand    *models.User
	campaign *models.Campaign
}

func newPayoutFixture(t *testing.T, executor TransferExecutor) *payoutFixture {
	t.Helper()

	db := newTestDB(t)
	brand := createTestUser(t, db, models.UserRoleBrand)
	campaign := createTestCampaign(t, db, brand.ID, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})

	svc := NewPayoutService(
		repositories.NewPayoutRepository(),
		repositories.NewTaskRepository(),
		repositories.NewCampaignRepository(),
		repositories.NewProfileRepository(),
		newTestNotifications(),
		executor,
	)

	f := &payoutFixture{db: db, svc: svc, brand: brand, campaign: campaign}
	if fe, ok := executor.(*fakeExecutor); ok {
		f.executor = fe
	}
	return f
}

// addApprovedWorker создает участника с одобренной задачей и профилем
func (f *payoutFixture) addApprovedWorker(t *testing.T, streak int, bankAccount string) *models.User {
	t.Helper()

	worker := createTestUser(t, f.db, models.UserRoleWorker)
	task := createTestTask(t, f.db, f.campaign.ID, worker.ID, models.TaskStatusApproved, time.Now().Add(-time.Hour))
	require.NoError(t, f.db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("payout_amount_paise", int64(1000)).Error)

	require.NoError(t, f.db.Create(&models.CommunityProfile{
		UserID:              worker.ID,
		QualityScore:        50,
		ConsecutiveAccepted: streak,
		BankAccount:         bankAccount,
	}).Error)
	return worker
}

func (f *payoutFixture) payoutFor(t *testing.T, recipientID string) *models.Payout {
	t.Helper()

	var payout models.Payout
	require.NoError(t, f.db.First(&payout, "campaign_id = ? AND recipient_id = ?", f.campaign.ID, recipientID).Error)
	return &payout
}

func countPayouts(t *testing.T, db *gorm.DB, campaignID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Payout{}).Where("campaign_id = ?", campaignID).Count(&count).Error)
	return count
}

func TestDistribute_InitiatesTransfer(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	worker := f.addApprovedWorker(t, 0, "acc_123")

	resp, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.TotalPayouts)

	payout := f.payoutFor(t, worker.ID)
	assert.Equal(t, int64(1000), payout.AmountPaise)
	assert.Equal(t, models.PayoutStatusPending, payout.Status) // processing ставит webhook
	assert.False(t, payout.ManualPending)
	assert.Nil(t, payout.TransferRef)

	assert.Equal(t, []string{"acc_123"}, f.executor.destinations)
	assert.Equal(t, int64(1), countNotifications(t, f.db, worker.ID, repositories.NotificationTypePayoutInitiated))
}

func TestDistribute_RerunCreatesNoDuplicates(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	f.addApprovedWorker(t, 0, "acc_123")

	ctx := context.Background()
	_, err := f.svc.DistributeForCampaign(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	resp, err := f.svc.DistributeForCampaign(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.TotalPayouts)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Skipped)

	assert.Equal(t, int64(1), countPayouts(t, f.db, f.campaign.ID))
	// Перевод не инициируется повторно
	assert.Len(t, f.executor.destinations, 1)
}

func TestDistribute_StreakBonus(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	bonusWorker := f.addApprovedWorker(t, 5, "acc_bonus")
	plainWorker := f.addApprovedWorker(t, 4, "acc_plain")

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	// Бонус 10% от базы начиная с 5 подряд; 4 подряд - без бонуса
	assert.Equal(t, int64(1100), f.payoutFor(t, bonusWorker.ID).AmountPaise)
	assert.Equal(t, int64(1000), f.payoutFor(t, plainWorker.ID).AmountPaise)
}

func TestDistribute_NoDestinationGoesManual(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	worker := f.addApprovedWorker(t, 0, "")

	resp, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalPayouts)

	payout := f.payoutFor(t, worker.ID)
	assert.Equal(t, models.PayoutStatusPending, payout.Status)
	assert.True(t, payout.ManualPending)

	// Перевод не инициировался
	assert.Empty(t, f.executor.destinations)
	assert.Equal(t, int64(1), countNotifications(t, f.db, worker.ID, repositories.NotificationTypePayoutManual))
}

func TestDistribute_NoExecutorGoesManual(t *testing.T) {
	f := newPayoutFixture(t, nil)
	worker := f.addApprovedWorker(t, 0, "acc_123")

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	payout := f.payoutFor(t, worker.ID)
	assert.Equal(t, models.PayoutStatusPending, payout.Status)
	assert.True(t, payout.ManualPending)
	assert.Equal(t, int64(1), countNotifications(t, f.db, worker.ID, repositories.NotificationTypePayoutManual))
}

func TestDistribute_FailureDoesNotAbortOthers(t *testing.T) {
	executor := &fakeExecutor{failFor: map[string]error{}}
	f := newPayoutFixture(t, executor)

	okWorker := f.addApprovedWorker(t, 0, "acc_ok")
	badWorker := f.addApprovedWorker(t, 0, "acc_bad")
	executor.failFor[badWorker.ID] = errors.New("beneficiary account blocked")

	resp, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.TotalPayouts)
	require.Len(t, resp.Results, 2)

	okPayout := f.payoutFor(t, okWorker.ID)
	assert.Equal(t, models.PayoutStatusPending, okPayout.Status)

	badPayout := f.payoutFor(t, badWorker.ID)
	assert.Equal(t, models.PayoutStatusFailed, badPayout.Status)
	assert.Equal(t, "beneficiary account blocked", badPayout.FailureReason)
	assert.NotNil(t, badPayout.FailedAt)
}

func TestDistribute_CreatorFeePayout(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	creator := createTestUser(t, f.db, models.UserRoleCreator)
	require.NoError(t, f.db.Model(&models.Campaign{}).Where("id = ?", f.campaign.ID).
		Updates(map[string]interface{}{"creator_id": creator.ID, "creator_fee_paise": int64(2000)}).Error)

	resp, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalPayouts)

	payout := f.payoutFor(t, creator.ID)
	assert.Equal(t, models.PayoutRoleCreator, payout.Role)
	assert.Equal(t, int64(2000), payout.AmountPaise)
	// Выплата креатору всегда идет через ручную очередь
	assert.True(t, payout.ManualPending)
	assert.Empty(t, f.executor.destinations)
}

func TestDistribute_RequiresCompletedCampaign(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	require.NoError(t, f.db.Model(&models.Campaign{}).Where("id = ?", f.campaign.ID).
		Update("status", models.CampaignStatusActive).Error)

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.ErrorIs(t, err, apperrors.ErrCampaignNotCompleted)
}

func TestDistribute_RequiresOperator(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleBrand)
	require.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
}

func TestCompleteManually(t *testing.T) {
	f := newPayoutFixture(t, nil)
	worker := f.addApprovedWorker(t, 0, "")

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	payout := f.payoutFor(t, worker.ID)
	require.True(t, payout.ManualPending)

	resp, err := f.svc.CompleteManually(f.db, payout.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPaid, resp.Status)

	// Задача участника закрывается вместе с выплатой
	var task models.Task
	require.NoError(t, f.db.First(&task, "campaign_id = ? AND participant_id = ?", f.campaign.ID, worker.ID).Error)
	assert.Equal(t, models.TaskStatusPaid, task.Status)

	// Повторное завершение невозможно
	_, err = f.svc.CompleteManually(f.db, payout.ID, models.UserRoleAdmin)
	require.Error(t, err)
}

func TestCompleteManually_RejectsAutomaticPayouts(t *testing.T) {
	f := newPayoutFixture(t, &fakeExecutor{})
	worker := f.addApprovedWorker(t, 0, "acc_123")

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	payout := f.payoutFor(t, worker.ID)
	require.False(t, payout.ManualPending)

	_, err = f.svc.CompleteManually(f.db, payout.ID, models.UserRoleAdmin)
	require.Error(t, err)
}

func TestListManualPending(t *testing.T) {
	f := newPayoutFixture(t, nil)
	f.addApprovedWorker(t, 0, "")

	_, err := f.svc.DistributeForCampaign(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	list, err := f.svc.ListManualPending(f.db, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListManualPending(f.db, models.UserRoleWorker)
	require.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
}

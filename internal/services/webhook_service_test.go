package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type webhookFixture struct {
	db       *gorm.DB
	svc      WebhookService
	escrow   EscrowService
	gateway  *fakeGateway
	brand    *models.User
	worker   *models.User
	campaign *models.Campaign
	payout   *models.Payout
}

// newWebhookFixture - завершенная кампания с pending-выплатой участника без
// ссылки шлюза, плюс escrow-реконсилер поверх фейкового шлюза.
func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	db := newTestDB(t)
	brand := createTestUser(t, db, models.UserRoleBrand)
	worker := createTestUser(t, db, models.UserRoleWorker)
	campaign := createTestCampaign(t, db, brand.ID, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})
	createTestTask(t, db, campaign.ID, worker.ID, models.TaskStatusApproved, time.Now().Add(-time.Hour))

	payout := &models.Payout{
		CampaignID:  campaign.ID,
		RecipientID: worker.ID,
		Role:        models.PayoutRoleWorker,
		AmountPaise: 1000,
		Status:      models.PayoutStatusPending,
	}
	require.NoError(t, db.Create(payout).Error)

	gateway := &fakeGateway{}
	notifications := newTestNotifications()
	escrow := NewEscrowService(repositories.NewCampaignRepository(), gateway, notifications)
	svc := NewWebhookService(escrow, repositories.NewPayoutRepository(), repositories.NewTaskRepository(), notifications)

	return &webhookFixture{
		db: db, svc: svc, escrow: escrow, gateway: gateway,
		brand: brand, worker: worker, campaign: campaign, payout: payout,
	}
}

func transferEvent(t *testing.T, eventType string, data map[string]interface{}) *payments.WebhookEvent {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &payments.WebhookEvent{Type: eventType, Data: raw}
}

func (f *webhookFixture) reloadPayout(t *testing.T) *models.Payout {
	t.Helper()

	var payout models.Payout
	require.NoError(t, f.db.First(&payout, "id = ?", f.payout.ID).Error)
	return &payout
}

func TestProcessEvent_TransferCreatedAttachesRef(t *testing.T) {
	f := newWebhookFixture(t)

	event := transferEvent(t, payments.EventTransferCreated, map[string]interface{}{
		"transfer_id":  "trf_100",
		"recipient_id": f.worker.ID,
		"campaign_id":  f.campaign.ID,
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), f.db, event))

	payout := f.reloadPayout(t)
	assert.Equal(t, models.PayoutStatusProcessing, payout.Status)
	require.NotNil(t, payout.TransferRef)
	assert.Equal(t, "trf_100", *payout.TransferRef)
	assert.NotNil(t, payout.InitiatedAt)
}

func TestProcessEvent_DuplicateTransferCreatedIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	event := transferEvent(t, payments.EventTransferCreated, map[string]interface{}{
		"transfer_id":  "trf_100",
		"recipient_id": f.worker.ID,
		"campaign_id":  f.campaign.ID,
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, event))

	// Дубль с другой ссылкой: guard "ссылки еще нет" не пропускает перематч
	dup := transferEvent(t, payments.EventTransferCreated, map[string]interface{}{
		"transfer_id":  "trf_200",
		"recipient_id": f.worker.ID,
		"campaign_id":  f.campaign.ID,
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, dup))

	payout := f.reloadPayout(t)
	assert.Equal(t, "trf_100", *payout.TransferRef)
}

func TestProcessEvent_TransferProcessed(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	created := transferEvent(t, payments.EventTransferCreated, map[string]interface{}{
		"transfer_id":  "trf_100",
		"recipient_id": f.worker.ID,
		"campaign_id":  f.campaign.ID,
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, created))

	processed := transferEvent(t, payments.EventTransferProcessed, map[string]interface{}{
		"transfer_id": "trf_100",
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, processed))

	payout := f.reloadPayout(t)
	assert.Equal(t, models.PayoutStatusPaid, payout.Status)
	assert.NotNil(t, payout.CompletedAt)

	// Задача участника закрыта
	var task models.Task
	require.NoError(t, f.db.First(&task, "campaign_id = ? AND participant_id = ?", f.campaign.ID, f.worker.ID).Error)
	assert.Equal(t, models.TaskStatusPaid, task.Status)

	assert.Equal(t, int64(1), countNotifications(t, f.db, f.worker.ID, repositories.NotificationTypePayoutPaid))

	// Дубль терминального события сходится без второго уведомления
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, processed))
	assert.Equal(t, int64(1), countNotifications(t, f.db, f.worker.ID, repositories.NotificationTypePayoutPaid))
}

func TestProcessEvent_TransferFailed(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	created := transferEvent(t, payments.EventTransferCreated, map[string]interface{}{
		"transfer_id":  "trf_100",
		"recipient_id": f.worker.ID,
		"campaign_id":  f.campaign.ID,
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, created))

	failed := transferEvent(t, payments.EventTransferFailed, map[string]interface{}{
		"transfer_id": "trf_100",
		"reason":      "account closed",
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, failed))

	payout := f.reloadPayout(t)
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	assert.Equal(t, "account closed", payout.FailureReason)
	assert.Equal(t, int64(1), countNotifications(t, f.db, f.worker.ID, repositories.NotificationTypePayoutFailed))
}

func TestProcessEvent_TerminalBeforeCreatedIsAcked(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// Терминальное событие до transfer.created: матч строго по ссылке,
	// выплата не трогается, событие подтверждается
	processed := transferEvent(t, payments.EventTransferProcessed, map[string]interface{}{
		"transfer_id": "trf_100",
	})
	require.NoError(t, f.svc.ProcessEvent(ctx, f.db, processed))

	payout := f.reloadPayout(t)
	assert.Equal(t, models.PayoutStatusPending, payout.Status)
	assert.Nil(t, payout.TransferRef)
}

func TestProcessEvent_PaymentAuthorized(t *testing.T) {
	f := newWebhookFixture(t)

	authRef := "order_wh_1"
	require.NoError(t, f.db.Model(&models.Campaign{}).Where("id = ?", f.campaign.ID).
		Update("payment_auth_ref", authRef).Error)

	event := transferEvent(t, payments.EventPaymentAuthorized, map[string]interface{}{
		"order_id": authRef,
		"amount":   f.campaign.BudgetPaise,
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), f.db, event))

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.NotNil(t, campaign.EscrowFundedAt)
}

func TestProcessEvent_PaymentFailed(t *testing.T) {
	f := newWebhookFixture(t)

	authRef := "order_wh_2"
	require.NoError(t, f.db.Model(&models.Campaign{}).Where("id = ?", f.campaign.ID).
		Updates(map[string]interface{}{
			"status":           models.CampaignStatusDraft,
			"payment_auth_ref": authRef,
		}).Error)

	event := transferEvent(t, payments.EventPaymentFailed, map[string]interface{}{
		"order_id": authRef,
		"reason":   "insufficient funds",
	})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), f.db, event))

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Nil(t, campaign.PaymentAuthRef)
}

func TestProcessEvent_MalformedPayload(t *testing.T) {
	f := newWebhookFixture(t)

	event := &payments.WebhookEvent{
		Type: payments.EventTransferProcessed,
		Data: json.RawMessage(`{"amount": "not a number"}`),
	}
	err := f.svc.ProcessEvent(context.Background(), f.db, event)
	require.Error(t, err)
}

func TestProcessEvent_MissingReference(t *testing.T) {
	f := newWebhookFixture(t)

	event := transferEvent(t, payments.EventTransferProcessed, map[string]interface{}{
		"recipient_id": f.worker.ID,
	})
	err := f.svc.ProcessEvent(context.Background(), f.db, event)
	require.Error(t, err)
}

func TestProcessEvent_UnknownEventAcked(t *testing.T) {
	f := newWebhookFixture(t)

	event := transferEvent(t, "refund.created", map[string]interface{}{"refund_id": "rfnd_1"})
	require.NoError(t, f.svc.ProcessEvent(context.Background(), f.db, event))
}

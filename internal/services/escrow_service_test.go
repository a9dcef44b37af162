package services

import (
	"context"
	"testing"
	"time"

	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"
	"crowdtask_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type escrowFixture struct {
	db       *gorm.DB
	svc      EscrowService
	gateway  *fakeGateway
	brand    *models.User
	campaign *models.Campaign
}

func newEscrowFixture(t *testing.T) *escrowFixture {
	t.Helper()

	db := newTestDB(t)
	brand := createTestUser(t, db, models.UserRoleBrand)
	creator := createTestUser(t, db, models.UserRoleCreator)
	campaign := createTestCampaign(t, db, brand.ID, func(c *models.Campaign) {
		c.Status = models.CampaignStatusDraft
		c.CreatorID = &creator.ID
		c.CreatorFeePaise = 1000
		c.PlatformFeePaise = 500
	})

	gateway := &fakeGateway{}
	svc := NewEscrowService(repositories.NewCampaignRepository(), gateway, newTestNotifications())

	return &escrowFixture{db: db, svc: svc, gateway: gateway, brand: brand, campaign: campaign}
}

func TestRequestAuthorization_StoresReference(t *testing.T) {
	f := newEscrowFixture(t)

	resp, err := f.svc.RequestAuthorization(context.Background(), f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	assert.Equal(t, "order_fake_1", resp.AuthorizationRef)
	assert.NotEmpty(t, resp.ClientSecret)
	assert.Equal(t, f.campaign.BudgetPaise, resp.AmountPaise)

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	require.NotNil(t, campaign.PaymentAuthRef)
	assert.Equal(t, "order_fake_1", *campaign.PaymentAuthRef)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
}

func TestRequestAuthorization_ReusesLiveAuthorization(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	first, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	// Перезагрузка платежной страницы: та же ссылка, новая авторизация не создается
	second, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	assert.Equal(t, first.AuthorizationRef, second.AuthorizationRef)
	assert.Equal(t, 1, f.gateway.authorizeCalls)
}

func TestRequestAuthorization_ReplacesTerminalAuthorization(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	// Старая авторизация истекла на стороне шлюза
	f.gateway.retrieveState = payments.AuthStateExpired

	resp, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	assert.Equal(t, "order_fake_2", resp.AuthorizationRef)
	assert.Equal(t, 2, f.gateway.authorizeCalls)

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	require.NotNil(t, campaign.PaymentAuthRef)
	assert.Equal(t, "order_fake_2", *campaign.PaymentAuthRef)
}

func TestRequestAuthorization_OnlyOwningBrand(t *testing.T) {
	f := newEscrowFixture(t)
	other := createTestUser(t, f.db, models.UserRoleBrand)

	_, err := f.svc.RequestAuthorization(context.Background(), f.db, f.campaign.ID, other.ID)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.HTTPCode)
}

func TestRequestAuthorization_RequiresCreator(t *testing.T) {
	f := newEscrowFixture(t)
	require.NoError(t, f.db.Model(&models.Campaign{}).Where("id = ?", f.campaign.ID).
		Update("creator_id", nil).Error)

	_, err := f.svc.RequestAuthorization(context.Background(), f.db, f.campaign.ID, f.brand.ID)
	require.ErrorIs(t, err, apperrors.ErrNoCreatorAssigned)
}

func TestRequestAuthorization_RequiresDraft(t *testing.T) {
	f := newEscrowFixture(t)
	require.NoError(t, f.db.Model(&models.Campaign{}).Where("id = ?", f.campaign.ID).
		Update("status", models.CampaignStatusActive).Error)

	_, err := f.svc.RequestAuthorization(context.Background(), f.db, f.campaign.ID, f.brand.ID)
	require.ErrorIs(t, err, apperrors.ErrCampaignNotDraft)
}

func TestCapture_ActivatesCampaign(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	resp, err := f.svc.Capture(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, f.campaign.BudgetPaise, resp.CapturedAmountPaise)

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)
	assert.NotNil(t, campaign.StartsAt)

	assert.Equal(t, int64(1), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeCampaignLive))
}

func TestCapture_RepeatConverges(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)
	_, err = f.svc.Capture(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	resp, err := f.svc.Capture(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// Повтор не дергает шлюз и не шлет второе уведомление
	assert.Equal(t, 1, f.gateway.captureCalls)
	assert.Equal(t, int64(1), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeCampaignLive))
}

func TestCapture_GatewayRejection(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	f.gateway.captureState = payments.AuthStateFailed

	_, err = f.svc.Capture(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.ErrorIs(t, err, apperrors.ErrCaptureFailed)

	// Состояние не тронуто: операцию можно повторить
	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Nil(t, campaign.StartsAt)
}

func TestCapture_RequiresOperator(t *testing.T) {
	f := newEscrowFixture(t)

	_, err := f.svc.Capture(context.Background(), f.db, f.campaign.ID, models.UserRoleBrand)
	require.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
}

func TestCapture_RequiresAuthorization(t *testing.T) {
	f := newEscrowFixture(t)

	_, err := f.svc.Capture(context.Background(), f.db, f.campaign.ID, models.UserRoleAdmin)
	require.ErrorIs(t, err, apperrors.ErrNoAuthorization)
}

func TestHandleAuthorizationOutcome_SuccessStampsOnce(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	resp, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, true, "")

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	require.NotNil(t, campaign.EscrowFundedAt)
	fundedAt := *campaign.EscrowFundedAt

	// Повторная доставка: штамп не перезаписывается, уведомление одно
	time.Sleep(5 * time.Millisecond)
	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, true, "")

	campaign = reloadCampaign(t, f.db, f.campaign.ID)
	require.NotNil(t, campaign.EscrowFundedAt)
	assert.True(t, campaign.EscrowFundedAt.Equal(fundedAt))
	assert.Equal(t, int64(1), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeCampaignLive))
}

func TestHandleAuthorizationOutcome_FailureResets(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	resp, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)

	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, false, "card declined")

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Nil(t, campaign.PaymentAuthRef)
	assert.Nil(t, campaign.EscrowFundedAt)

	assert.Equal(t, int64(1), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeEscrowFailed))

	// Дубль события: ссылка уже очищена, второго уведомления нет
	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, false, "card declined")
	assert.Equal(t, int64(1), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeEscrowFailed))
}

func TestHandleAuthorizationOutcome_LateFailureAfterCaptureIgnored(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	resp, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)
	_, err = f.svc.Capture(ctx, f.db, f.campaign.ID, models.UserRoleAdmin)
	require.NoError(t, err)

	// Запоздавший payment.failed от ранней неудачной попытки оплаты
	// приходит уже после успешного capture
	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, false, "card declined")

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)
	require.NotNil(t, campaign.PaymentAuthRef)
	assert.Equal(t, resp.AuthorizationRef, *campaign.PaymentAuthRef)

	assert.Equal(t, int64(0), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeEscrowFailed))
}

func TestHandleAuthorizationOutcome_LateFailureAfterFundingIgnored(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	resp, err := f.svc.RequestAuthorization(ctx, f.db, f.campaign.ID, f.brand.ID)
	require.NoError(t, err)
	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, true, "")

	// После штампа фондирования провал той же авторизации уже не откатывает
	f.svc.HandleAuthorizationOutcome(f.db, resp.AuthorizationRef, false, "card declined")

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.NotNil(t, campaign.PaymentAuthRef)
	assert.NotNil(t, campaign.EscrowFundedAt)

	assert.Equal(t, int64(0), countNotifications(t, f.db, f.brand.ID, repositories.NotificationTypeEscrowFailed))
}

func TestHandleAuthorizationOutcome_UnknownReferenceIgnored(t *testing.T) {
	f := newEscrowFixture(t)

	f.svc.HandleAuthorizationOutcome(f.db, "order_unknown", true, "")

	campaign := reloadCampaign(t, f.db, f.campaign.ID)
	assert.Nil(t, campaign.EscrowFundedAt)
}

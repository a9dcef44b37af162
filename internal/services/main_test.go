package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"crowdtask_backend/database"
	"crowdtask_backend/internal/config"
	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Init("production")

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	cfg.Payments.Currency = "INR"
	cfg.Payments.WebhookSecret = "whsec_test"
	config.AppConfig = cfg

	os.Exit(m.Run())
}

// newTestDB - чистая in-memory sqlite база на тест.
// TranslateError обязателен: репозитории ловят gorm.ErrDuplicatedKey.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:        fmt.Sprintf("%s_%s@test.com", role, uuid.NewString()[:8]),
		PasswordHash: "not-a-real-hash",
		Name:         "Test " + string(role),
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createTestCampaign создает кампанию с дефолтами; mutate правит поля до сохранения
func createTestCampaign(t *testing.T, db *gorm.DB, brandID string, mutate func(*models.Campaign)) *models.Campaign {
	t.Helper()

	campaign := &models.Campaign{
		BrandID:            brandID,
		Title:              "Test Campaign",
		PerTaskPaise:       1000,
		TargetParticipants: 10,
		TaskMinSeconds:     100,
		Status:             models.CampaignStatusActive,
	}
	if mutate != nil {
		mutate(campaign)
	}
	if campaign.BudgetPaise == 0 {
		campaign.BudgetPaise = campaign.PerTaskPaise*int64(campaign.TargetParticipants) +
			campaign.CreatorFeePaise + campaign.PlatformFeePaise
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func createTestTask(t *testing.T, db *gorm.DB, campaignID, participantID string, status models.TaskStatus, startedAt time.Time) *models.Task {
	t.Helper()

	task := &models.Task{
		CampaignID:    campaignID,
		ParticipantID: participantID,
		Status:        status,
		StartedAt:     startedAt,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func setTaskResponses(t *testing.T, db *gorm.DB, taskID string, responses map[string]string) {
	t.Helper()

	raw, err := json.Marshal(responses)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", taskID).
		Update("responses", datatypes.JSON(raw)).Error)
}

func reloadTask(t *testing.T, db *gorm.DB, taskID string) *models.Task {
	t.Helper()

	var task models.Task
	require.NoError(t, db.First(&task, "id = ?", taskID).Error)
	return &task
}

func reloadCampaign(t *testing.T, db *gorm.DB, campaignID string) *models.Campaign {
	t.Helper()

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, "id = ?", campaignID).Error)
	return &campaign
}

func reloadProfile(t *testing.T, db *gorm.DB, userID string) *models.CommunityProfile {
	t.Helper()

	var profile models.CommunityProfile
	require.NoError(t, db.First(&profile, "user_id = ?", userID).Error)
	return &profile
}

func countNotifications(t *testing.T, db *gorm.DB, userID, notificationType string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, notificationType).
		Count(&count).Error)
	return count
}

func newTestNotifications() NotificationService {
	return NewNotificationService(repositories.NewNotificationRepository(), repositories.NewUserRepository(), nil)
}

// ============================================================================
// Фейковый платежный шлюз
// ============================================================================

type fakeGateway struct {
	authorizeCalls int
	captureCalls   int
	transferCalls  int

	authorizeErr error
	captureErr   error
	transferErr  error

	// Состояния, которые шлюз отдает наружу; пустое значение = дефолт
	retrieveState payments.AuthorizationState
	captureState  payments.AuthorizationState
}

func (g *fakeGateway) Authorize(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (*payments.Authorization, error) {
	g.authorizeCalls++
	if g.authorizeErr != nil {
		return nil, g.authorizeErr
	}
	ref := fmt.Sprintf("order_fake_%d", g.authorizeCalls)
	return &payments.Authorization{
		Ref:          ref,
		ClientSecret: "secret_" + ref,
		State:        payments.AuthStateCreated,
		AmountPaise:  amountPaise,
	}, nil
}

func (g *fakeGateway) Capture(ctx context.Context, ref string, amountPaise int64) (*payments.CaptureResult, error) {
	g.captureCalls++
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	state := g.captureState
	if state == "" {
		state = payments.AuthStateCaptured
	}
	return &payments.CaptureResult{Ref: ref, State: state, CapturedPaise: amountPaise}, nil
}

func (g *fakeGateway) Retrieve(ctx context.Context, ref string) (*payments.Authorization, error) {
	state := g.retrieveState
	if state == "" {
		state = payments.AuthStateAuthorized
	}
	return &payments.Authorization{Ref: ref, ClientSecret: "secret_" + ref, State: state}, nil
}

func (g *fakeGateway) Transfer(ctx context.Context, amountPaise int64, destination string, metadata map[string]string) (*payments.TransferResult, error) {
	g.transferCalls++
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	return &payments.TransferResult{Ref: fmt.Sprintf("trf_fake_%d", g.transferCalls), AmountPaise: amountPaise}, nil
}

// ============================================================================
// Фейковый исполнитель переводов
// ============================================================================

type fakeExecutor struct {
	destinations []string
	failFor      map[string]error // recipient_id -> ошибка
}

func (e *fakeExecutor) Execute(ctx context.Context, payout *models.Payout, destination string) error {
	if err, ok := e.failFor[payout.RecipientID]; ok {
		return err
	}
	e.destinations = append(e.destinations, destination)
	return nil
}

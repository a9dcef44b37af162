package app

import (
	"context"
	"errors"
	"fmt"

	"crowdtask_backend/database"
	"crowdtask_backend/internal/config"
	"crowdtask_backend/internal/email"
	"crowdtask_backend/internal/handlers"
	"crowdtask_backend/internal/logger"
	"crowdtask_backend/internal/middleware"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/payments"
	"crowdtask_backend/internal/routes"
	"crowdtask_backend/internal/services"
	"crowdtask_backend/internal/validator"
	"crowdtask_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	// TranslateError нужен, чтобы репозитории могли ловить gorm.ErrDuplicatedKey
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("AutoMigrate failed", "error", err)
	}
	logger.Info("AutoMigrate completed")

	if err := seedFirstOperator(gormDB, cfg); err != nil {
		// Без оператора некому подтверждать capture и ручные выплаты
		logger.Fatal("Failed to seed first operator user", "error", err)
	}

	ginRouter, serviceContainer := SetupRouter(cfg, gormDB)

	campaignWorker := workers.NewCampaignWorker(gormDB, serviceContainer.CampaignService)
	campaignWorker.Start(context.Background())
	logger.Info("Campaign worker started")

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *services.ServiceContainer) {
	// 1. Инициализируем сервисы
	serviceContainer := initializeServices(cfg)

	// 2. Инициализируем хэндлеры
	appHandlers := initializeHandlers(serviceContainer)

	// 3. Инициализируем Gin
	ginRouter := initializeGinRouter(gormDB)

	// 4. Делегируем регистрацию маршрутов пакету 'routes'
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter, serviceContainer
}

func initializeServices(cfg *config.Config) *services.ServiceContainer {
	var emailProvider email.Provider
	if cfg.Email.SMTPHost != "" {
		emailProvider = email.NewSMTPProvider(cfg)
		logger.Info("SMTP email provider initialized", "host", cfg.Email.SMTPHost)
	} else {
		logger.Warn("--- SMTP не настроен. Используется MOCK email-провайдер. ---")
		emailProvider = &MockEmailProvider{}
	}

	var gateway payments.Gateway
	var transfers services.TransferExecutor
	if cfg.Payments.KeyID != "" && cfg.Payments.KeySecret != "" {
		gateway = payments.NewRazorpayGateway(cfg.Payments.BaseURL, cfg.Payments.KeyID, cfg.Payments.KeySecret)
		transfers = &services.GatewayTransferExecutor{Gateway: gateway}
		logger.Info("Payment gateway initialized", "base_url", cfg.Payments.BaseURL)
	} else {
		// Без ключей шлюза переводы не исполняются: transfers == nil
		// отправляет все выплаты в ручную очередь оператора.
		logger.Warn("--- Ключи шлюза не настроены. Используется MOCK-шлюз, выплаты уходят в ручную очередь. ---")
		gateway = &MockGateway{}
		transfers = nil
	}

	return services.NewServiceContainer(gateway, emailProvider, transfers)
}

func initializeHandlers(serviceContainer *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	return handlers.NewAppHandlers(serviceContainer, customValidator)
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstOperator(db *gorm.DB, cfg *config.Config) error {
	operatorEmail := cfg.FirstOperatorEmail
	operatorPassword := cfg.FirstOperatorPassword

	if operatorEmail == "" || operatorPassword == "" {
		logger.Warn("FIRST_OPERATOR_EMAIL or FIRST_OPERATOR_PASSWORD is not set. Skipping operator seeding.")
		return nil
	}

	var operator models.User
	result := db.Where("email = ?", operatorEmail).First(&operator)

	if result.Error == nil {
		logger.Info("Operator user already exists. Skipping creation.", "email", operatorEmail)
		return nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for operator user: %w", result.Error)
	}

	logger.Warn("No operator user found with specified email. Creating first operator...", "email", operatorEmail)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash operator password: %w", err)
	}

	newOperator := &models.User{
		Email:        operatorEmail,
		PasswordHash: string(hashedPassword),
		Name:         "Platform Operator",
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}

	if err := db.Create(newOperator).Error; err != nil {
		return fmt.Errorf("failed to create operator user in database: %w", err)
	}

	logger.Info("✅ Successfully created first operator user", "email", operatorEmail)
	return nil
}

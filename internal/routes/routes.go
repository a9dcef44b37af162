package routes

import (
	"crowdtask_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers, // <-- Принимаем ГОТОВЫЕ хэндлеры
) {
	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.Auth.RegisterRoutes(api)
		appHandlers.Campaign.RegisterRoutes(api)
		appHandlers.Task.RegisterRoutes(api)
		appHandlers.Payout.RegisterRoutes(api)
		appHandlers.Notification.RegisterRoutes(api)
		appHandlers.Webhook.RegisterRoutes(api)
	}
}

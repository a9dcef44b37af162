package handlers

import (
	"net/http"

	"crowdtask_backend/internal/middleware"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	*BaseHandler
	payoutService services.PayoutService
}

func NewPayoutHandler(base *BaseHandler, payoutService services.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		BaseHandler:   base,
		payoutService: payoutService,
	}
}

// RegisterRoutes регистрирует маршруты выплат
func (h *PayoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payouts := rg.Group("/payouts")
	payouts.Use(middleware.AuthMiddleware())
	{
		payouts.GET("", h.ListMyPayouts)
		payouts.GET("/manual-pending",
			middleware.RequireRoles(models.UserRoleAdmin), h.ListManualPending)
		payouts.POST("/:payoutId/complete-manually",
			middleware.RequireRoles(models.UserRoleAdmin), h.CompleteManually)
	}
}

func (h *PayoutHandler) ListMyPayouts(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	limit, offset := ParsePagination(c)

	resp, err := h.payoutService.ListRecipientPayouts(db, userID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": resp})
}

func (h *PayoutHandler) ListManualPending(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.payoutService.ListManualPending(db, middleware.GetUserRole(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": resp})
}

func (h *PayoutHandler) CompleteManually(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.payoutService.CompleteManually(db, c.Param("payoutId"), middleware.GetUserRole(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

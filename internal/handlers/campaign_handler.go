package handlers

import (
	"net/http"

	"crowdtask_backend/internal/middleware"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/services"

	"crowdtask_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type CampaignHandler struct {
	*BaseHandler
	campaignService services.CampaignService
	escrowService   services.EscrowService
	payoutService   services.PayoutService
}

func NewCampaignHandler(
	base *BaseHandler,
	campaignService services.CampaignService,
	escrowService services.EscrowService,
	payoutService services.PayoutService,
) *CampaignHandler {
	return &CampaignHandler{
		BaseHandler:     base,
		campaignService: campaignService,
		escrowService:   escrowService,
		payoutService:   payoutService,
	}
}

// RegisterRoutes регистрирует маршруты кампаний и эскроу
func (h *CampaignHandler) RegisterRoutes(rg *gin.RouterGroup) {
	campaigns := rg.Group("/campaigns")
	campaigns.Use(middleware.AuthMiddleware())
	{
		campaigns.POST("", middleware.RequireRoles(models.UserRoleBrand), h.CreateCampaign)
		campaigns.GET("", middleware.RequireRoles(models.UserRoleBrand), h.ListCampaigns)
		campaigns.GET("/:campaignId", h.GetCampaign)

		campaigns.POST("/:campaignId/join",
			middleware.RequireRoles(models.UserRoleWorker), h.JoinCampaign)

		campaigns.POST("/:campaignId/authorize-payment",
			middleware.RequireRoles(models.UserRoleBrand), h.AuthorizePayment)
		campaigns.POST("/:campaignId/capture-payment",
			middleware.RequireRoles(models.UserRoleAdmin), h.CapturePayment)

		campaigns.POST("/:campaignId/complete",
			middleware.RequireRoles(models.UserRoleAdmin), h.CompleteCampaign)
		campaigns.POST("/:campaignId/distribute-payouts",
			middleware.RequireRoles(models.UserRoleAdmin), h.DistributePayouts)
	}
}

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCampaignRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	resp, err := h.campaignService.CreateCampaign(db, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	limit, offset := ParsePagination(c)

	resp, err := h.campaignService.ListBrandCampaigns(db, userID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": resp})
}

func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	db := h.GetDB(c)

	resp, err := h.campaignService.GetCampaign(db, c.Param("campaignId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CampaignHandler) JoinCampaign(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.campaignService.JoinCampaign(db, c.Param("campaignId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CampaignHandler) AuthorizePayment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.escrowService.RequestAuthorization(c.Request.Context(), db, c.Param("campaignId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CampaignHandler) CapturePayment(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.escrowService.Capture(c.Request.Context(), db, c.Param("campaignId"), middleware.GetUserRole(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CampaignHandler) CompleteCampaign(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.campaignService.CompleteCampaign(db, c.Param("campaignId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CampaignHandler) DistributePayouts(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.payoutService.DistributeForCampaign(c.Request.Context(), db, c.Param("campaignId"), middleware.GetUserRole(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

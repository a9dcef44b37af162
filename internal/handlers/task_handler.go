package handlers

import (
	"net/http"

	"crowdtask_backend/internal/middleware"
	"crowdtask_backend/internal/models"
	"crowdtask_backend/internal/services"
	"crowdtask_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	*BaseHandler
	submissionService services.SubmissionService
	reviewService     services.ReviewService
}

func NewTaskHandler(
	base *BaseHandler,
	submissionService services.SubmissionService,
	reviewService services.ReviewService,
) *TaskHandler {
	return &TaskHandler{
		BaseHandler:       base,
		submissionService: submissionService,
		reviewService:     reviewService,
	}
}

// RegisterRoutes регистрирует маршруты задач
func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	tasks.Use(middleware.AuthMiddleware())
	{
		tasks.GET("", middleware.RequireRoles(models.UserRoleWorker), h.ListMyTasks)
		tasks.GET("/:taskId", middleware.RequireRoles(models.UserRoleWorker), h.GetTask)
		tasks.POST("/:taskId/submit", middleware.RequireRoles(models.UserRoleWorker), h.SubmitTask)
		tasks.POST("/:taskId/review", middleware.RequireRoles(models.UserRoleAdmin), h.ReviewTask)
	}
}

func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	limit, offset := ParsePagination(c)

	resp, err := h.submissionService.ListParticipantTasks(db, userID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": resp})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	resp, err := h.submissionService.GetTask(db, c.Param("taskId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) SubmitTask(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitTaskRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	resp, err := h.submissionService.Submit(db, c.Param("taskId"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) ReviewTask(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	var req dto.ReviewTaskRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	resp, err := h.reviewService.Review(db, c.Param("taskId"), middleware.GetUserRole(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

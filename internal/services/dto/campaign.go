package dto

import (
	"time"

	"crowdtask_backend/internal/models"
)

// CreateCampaignRequest - заявка бренда на кампанию.
// Все суммы в минорных единицах (пайсы).
type CreateCampaignRequest struct {
	Title              string  `json:"title" validate:"required,min=3,max=200"`
	Description        string  `json:"description" validate:"max=5000"`
	PerTaskPaise       int64   `json:"perTaskPaise" validate:"required,gt=0"`
	TargetParticipants int     `json:"targetParticipants" validate:"required,gt=0"`
	TaskMinSeconds     int     `json:"taskMinSeconds" validate:"gte=0"`
	CreatorID          *string `json:"creatorId,omitempty"`
}

type CampaignResponse struct {
	ID                  string                `json:"id"`
	BrandID             string                `json:"brandId"`
	CreatorID           *string               `json:"creatorId,omitempty"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	BudgetPaise         int64                 `json:"budgetPaise"`
	PerTaskPaise        int64                 `json:"perTaskPaise"`
	CreatorFeePaise     int64                 `json:"creatorFeePaise"`
	PlatformFeePaise    int64                 `json:"platformFeePaise"`
	TargetParticipants  int                   `json:"targetParticipants"`
	CurrentParticipants int                   `json:"currentParticipants"`
	TaskMinSeconds      int                   `json:"taskMinSeconds"`
	Status              models.CampaignStatus `json:"status"`
	EscrowFundedAt      *time.Time            `json:"escrowFundedAt,omitempty"`
	StartsAt            *time.Time            `json:"startsAt,omitempty"`
	CompletedAt         *time.Time            `json:"completedAt,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
}

func NewCampaignResponse(c *models.Campaign) *CampaignResponse {
	return &CampaignResponse{
		ID:                  c.ID,
		BrandID:             c.BrandID,
		CreatorID:           c.CreatorID,
		Title:               c.Title,
		Description:         c.Description,
		BudgetPaise:         c.BudgetPaise,
		PerTaskPaise:        c.PerTaskPaise,
		CreatorFeePaise:     c.CreatorFeePaise,
		PlatformFeePaise:    c.PlatformFeePaise,
		TargetParticipants:  c.TargetParticipants,
		CurrentParticipants: c.CurrentParticipants,
		TaskMinSeconds:      c.TaskMinSeconds,
		Status:              c.Status,
		EscrowFundedAt:      c.EscrowFundedAt,
		StartsAt:            c.StartsAt,
		CompletedAt:         c.CompletedAt,
		CreatedAt:           c.CreatedAt,
	}
}

// AuthorizePaymentResponse - созданная (или переиспользованная) авторизация
type AuthorizePaymentResponse struct {
	AuthorizationRef string `json:"authorizationRef"`
	ClientSecret     string `json:"clientSecret,omitempty"`
	AmountPaise      int64  `json:"amountPaise"`
}

// CapturePaymentResponse - итог списания эскроу
type CapturePaymentResponse struct {
	Success             bool  `json:"success"`
	CapturedAmountPaise int64 `json:"capturedAmountPaise"`
}

package dto

import (
	"time"

	"crowdtask_backend/internal/models"
)

// PayoutResult - итог распределения по одному получателю
type PayoutResult struct {
	RecipientID string              `json:"recipientId"`
	Role        models.PayoutRole   `json:"role"`
	Status      models.PayoutStatus `json:"status"`
	AmountPaise int64               `json:"amountPaise"`
	Skipped     bool                `json:"skipped,omitempty"` // выплата уже существовала
	Error       string              `json:"error,omitempty"`
}

// DistributePayoutsResponse - ответ операции distribute-payouts
type DistributePayoutsResponse struct {
	Success      bool           `json:"success"`
	TotalPayouts int            `json:"totalPayouts"`
	Results      []PayoutResult `json:"results"`
}

type PayoutResponse struct {
	ID            string              `json:"id"`
	CampaignID    string              `json:"campaignId"`
	RecipientID   string              `json:"recipientId"`
	Role          models.PayoutRole   `json:"role"`
	AmountPaise   int64               `json:"amountPaise"`
	Status        models.PayoutStatus `json:"status"`
	FailureReason string              `json:"failureReason,omitempty"`
	TransferRef   *string             `json:"transferRef,omitempty"`
	ManualPending bool                `json:"manualPending"`
	InitiatedAt   *time.Time          `json:"initiatedAt,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	FailedAt      *time.Time          `json:"failedAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func NewPayoutResponse(p *models.Payout) *PayoutResponse {
	return &PayoutResponse{
		ID:            p.ID,
		CampaignID:    p.CampaignID,
		RecipientID:   p.RecipientID,
		Role:          p.Role,
		AmountPaise:   p.AmountPaise,
		Status:        p.Status,
		FailureReason: p.FailureReason,
		TransferRef:   p.TransferRef,
		ManualPending: p.ManualPending,
		InitiatedAt:   p.InitiatedAt,
		CompletedAt:   p.CompletedAt,
		FailedAt:      p.FailedAt,
		CreatedAt:     p.CreatedAt,
	}
}

package models

import (
	"time"
)

// Campaign - профинансированный бренд-заказ на работу сообщества.
// Все суммы хранятся в минорных единицах валюты (пайсы).
type Campaign struct {
	BaseModel
	BrandID     string  `gorm:"not null;index" json:"brand_id"`
	CreatorID   *string `gorm:"index" json:"creator_id"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description"`

	// Инвариант: BudgetPaise = PerTaskPaise*TargetParticipants + CreatorFeePaise + PlatformFeePaise.
	// Считается один раз при создании и дальше не пересчитывается.
	BudgetPaise      int64 `gorm:"not null" json:"budget_paise"`
	PerTaskPaise     int64 `gorm:"not null" json:"per_task_paise"`
	CreatorFeePaise  int64 `json:"creator_fee_paise"`
	PlatformFeePaise int64 `json:"platform_fee_paise"`

	TargetParticipants  int `gorm:"not null" json:"target_participants"`
	CurrentParticipants int `gorm:"default:0" json:"current_participants"`
	TaskMinSeconds      int `gorm:"default:60" json:"task_min_seconds"`

	Status CampaignStatus `gorm:"not null;default:'draft';index" json:"status"`

	// Не более одной живой (не терминальной) авторизации на кампанию
	PaymentAuthRef *string    `gorm:"index" json:"payment_auth_ref,omitempty"`
	EscrowFundedAt *time.Time `json:"escrow_funded_at,omitempty"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// HasLiveAuthorization - есть ли у кампании сохраненная платежная авторизация
func (c *Campaign) HasLiveAuthorization() bool {
	return c.PaymentAuthRef != nil && *c.PaymentAuthRef != ""
}

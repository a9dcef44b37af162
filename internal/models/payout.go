package models

import "time"

// Payout - единица "деньги должны" получателю по кампании.
// Уникальный индекс (campaign_id, recipient_id, role) гарантирует,
// что повторный запуск распределения не создаст дубликатов.
type Payout struct {
	BaseModel
	CampaignID  string     `gorm:"not null;index;uniqueIndex:idx_payout_campaign_recipient_role" json:"campaign_id"`
	RecipientID string     `gorm:"not null;index;uniqueIndex:idx_payout_campaign_recipient_role" json:"recipient_id"`
	Role        PayoutRole `gorm:"not null;uniqueIndex:idx_payout_campaign_recipient_role" json:"role"`

	AmountPaise   int64        `gorm:"not null" json:"amount_paise"`
	Status        PayoutStatus `gorm:"not null;default:'pending';index" json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`

	// Ссылка на перевод в шлюзе. Проставляется ТОЛЬКО webhook-реконсилером
	// (событие transfer.created); терминальные события матчатся по ней же.
	TransferRef *string `gorm:"index" json:"transfer_ref,omitempty"`

	// Получатель без платежных реквизитов: перевод не инициируется,
	// строка ждет ручного завершения оператором.
	ManualPending bool `gorm:"default:false" json:"manual_pending"`

	InitiatedAt *time.Time `json:"initiated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

// IsTerminal - выплата достигла конечного состояния
func (p *Payout) IsTerminal() bool {
	return p.Status == PayoutStatusPaid || p.Status == PayoutStatusFailed
}

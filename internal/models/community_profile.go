package models

import "time"

// CommunityProfile - долговременная репутация участника и его платежные реквизиты.
// quality_score всегда в диапазоне [0, 100].
type CommunityProfile struct {
	UserID              string    `gorm:"primaryKey" json:"user_id"`
	QualityScore        int       `gorm:"default:50" json:"quality_score"`
	TotalTasksCompleted int       `gorm:"default:0" json:"total_tasks_completed"`
	ConsecutiveAccepted int       `gorm:"default:0" json:"consecutive_accepted"`
	BankAccount         string    `json:"bank_account,omitempty"`
	UpiID               string    `json:"upi_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasPayoutDestination - есть ли куда переводить деньги
func (p *CommunityProfile) HasPayoutDestination() bool {
	return p.BankAccount != "" || p.UpiID != ""
}

// PayoutDestination возвращает реквизит для перевода (банк приоритетнее UPI)
func (p *CommunityProfile) PayoutDestination() string {
	if p.BankAccount != "" {
		return p.BankAccount
	}
	return p.UpiID
}

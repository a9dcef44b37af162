package models

import (
	"time"

	"gorm.io/datatypes"
)

// Task - одна попытка участника выполнить задание кампании.
// Пара (campaign_id, participant_id) уникальна: участник заходит в кампанию один раз.
type Task struct {
	BaseModel
	CampaignID    string `gorm:"not null;index;uniqueIndex:idx_task_campaign_participant" json:"campaign_id"`
	ParticipantID string `gorm:"not null;index;uniqueIndex:idx_task_campaign_participant" json:"participant_id"`

	Status    TaskStatus     `gorm:"not null;default:'in_progress';index" json:"status"`
	Responses datatypes.JSON `gorm:"type:jsonb" json:"responses"` // {"field": "answer", ...}

	TimeSpentSeconds  int    `json:"time_spent_seconds"`
	QualityScore      int    `json:"quality_score"` // 0-100
	RejectionCategory string `json:"rejection_category,omitempty"`
	RejectionReason   string `json:"rejection_reason,omitempty"`
	PayoutAmountPaise int64  `json:"payout_amount_paise"`
	SpotCheck         bool   `gorm:"default:false" json:"spot_check"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// IsDecided - задача уже прошла валидацию (повторная валидация запрещена)
func (t *Task) IsDecided() bool {
	return t.Status != TaskStatusInProgress
}

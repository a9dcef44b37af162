package dto

import (
	"time"

	"crowdtask_backend/internal/models"
)

// ClientQuality - клиентская самодиагностика сабмишена.
// Отсутствие сигнала не отклоняет работу автоматически, но серверные
// проверки им не обходятся.
type ClientQuality struct {
	Passed *bool    `json:"passed,omitempty"`
	Score  *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=1"`
	Flags  []string `json:"flags,omitempty"`
}

// TimeMetadata - клиентская телеметрия времени выполнения
type TimeMetadata struct {
	ActiveSeconds int `json:"activeSeconds" validate:"gte=0"`
}

// SubmitTaskRequest - сабмишен задания на валидацию
type SubmitTaskRequest struct {
	Responses     map[string]string `json:"responses" validate:"required,min=1"`
	ClientQuality *ClientQuality    `json:"clientQuality,omitempty"`
	TimeMetadata  TimeMetadata      `json:"timeMetadata"`
}

// SubmitTaskResponse - вердикт валидатора
type SubmitTaskResponse struct {
	Accepted     bool   `json:"accepted"`
	Reason       string `json:"reason,omitempty"` // категория отклонения
	Message      string `json:"message"`
	QualityScore int    `json:"qualityScore"`
}

// ReviewTaskRequest - решение ревьюера по принятому сабмишену
type ReviewTaskRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason,omitempty" validate:"max=1000"`
}

type TaskResponse struct {
	ID                string            `json:"id"`
	CampaignID        string            `json:"campaignId"`
	ParticipantID     string            `json:"participantId"`
	Status            models.TaskStatus `json:"status"`
	TimeSpentSeconds  int               `json:"timeSpentSeconds"`
	QualityScore      int               `json:"qualityScore"`
	RejectionCategory string            `json:"rejectionCategory,omitempty"`
	RejectionReason   string            `json:"rejectionReason,omitempty"`
	PayoutAmountPaise int64             `json:"payoutAmountPaise"`
	StartedAt         time.Time         `json:"startedAt"`
	SubmittedAt       *time.Time        `json:"submittedAt,omitempty"`
}

func NewTaskResponse(t *models.Task) *TaskResponse {
	return &TaskResponse{
		ID:                t.ID,
		CampaignID:        t.CampaignID,
		ParticipantID:     t.ParticipantID,
		Status:            t.Status,
		TimeSpentSeconds:  t.TimeSpentSeconds,
		QualityScore:      t.QualityScore,
		RejectionCategory: t.RejectionCategory,
		RejectionReason:   t.RejectionReason,
		PayoutAmountPaise: t.PayoutAmountPaise,
		StartedAt:         t.StartedAt,
		SubmittedAt:       t.SubmittedAt,
	}
}

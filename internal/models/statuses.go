package models

type UserStatus string
type UserRole string
type CampaignStatus string
type TaskStatus string
type PayoutStatus string
type PayoutRole string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"

	UserRoleBrand   UserRole = "brand"
	UserRoleCreator UserRole = "creator"
	UserRoleWorker  UserRole = "worker"
	UserRoleAdmin   UserRole = "admin"

	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"

	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusApproved   TaskStatus = "approved"
	TaskStatusRejected   TaskStatus = "rejected"
	TaskStatusPaid       TaskStatus = "paid"

	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"

	PayoutRoleWorker  PayoutRole = "worker"
	PayoutRoleCreator PayoutRole = "creator"
)

// Категории отклонения сабмишена, в порядке приоритета
const (
	RejectionDuplicate  = "duplicate_response"
	RejectionTooFast    = "too_fast"
	RejectionGibberish  = "gibberish"
	RejectionLowQuality = "low_quality"
)

package validator

import (
	"log"

	"crowdtask_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации в
// переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Правило не зарегистрировалось - приложение не должно запускаться
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// Правила, основанные на statuses.go
	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-campaign-status", validateCampaignStatus)
	mustRegister("is-task-status", validateTaskStatus)
	mustRegister("is-payout-status", validatePayoutStatus)
}

// --- Функции валидации ---

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Пустые значения проверяет 'required'
	}

	switch models.UserRole(value) {
	case models.UserRoleBrand, models.UserRoleCreator, models.UserRoleWorker, models.UserRoleAdmin:
		return true
	default:
		return false
	}
}

func validateCampaignStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.CampaignStatus(value) {
	case models.CampaignStatusDraft, models.CampaignStatusActive, models.CampaignStatusPaused,
		models.CampaignStatusCompleted, models.CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.TaskStatus(value) {
	case models.TaskStatusInProgress, models.TaskStatusSubmitted, models.TaskStatusApproved,
		models.TaskStatusRejected, models.TaskStatusPaid:
		return true
	default:
		return false
	}
}

func validatePayoutStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.PayoutStatus(value) {
	case models.PayoutStatusPending, models.PayoutStatusProcessing,
		models.PayoutStatusPaid, models.PayoutStatusFailed:
		return true
	default:
		return false
	}
}

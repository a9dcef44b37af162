package auth

import (
	"errors"

	"crowdtask_backend/internal/models"
)

// IsOperator - только admin обладает операторской capability:
// capture эскроу, распределение выплат, ревью задач
func IsOperator(role models.UserRole) bool {
	return role == models.UserRoleAdmin
}

// ValidateRole проверяет валидность роли
func ValidateRole(role string) error {
	switch models.UserRole(role) {
	case models.UserRoleBrand, models.UserRoleCreator, models.UserRoleWorker, models.UserRoleAdmin:
		return nil
	default:
		return errors.New("invalid role")
	}
}

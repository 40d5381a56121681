package services

import (
	"github.com/google/uuid"

	"taskflow-backend/internal/models"
)

// Managers may touch any task; employees only their own, and may never
// delete.

func CanEditTask(role string, taskUserID, currentUserID uuid.UUID) bool {
	if role == models.RoleManager {
		return true
	}
	return taskUserID == currentUserID
}

func CanDeleteTask(role string) bool {
	return role == models.RoleManager
}

func CanChangeTaskStatus(role string, taskUserID, currentUserID uuid.UUID) bool {
	if role == models.RoleManager {
		return true
	}
	return taskUserID == currentUserID
}

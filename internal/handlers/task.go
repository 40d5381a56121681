package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"taskflow-backend/internal/middleware"
	"taskflow-backend/internal/models"
	"taskflow-backend/internal/services"
)

type TaskHandler struct {
	taskRepo taskRepository
	userRepo userGetter
}

type taskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func NewTaskHandler(taskRepo taskRepository, userRepo userGetter) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, userRepo: userRepo}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch tasks", r))
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if fields := validateCreateTask(&req); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	// Assignee must be an existing user
	if _, err := h.userRepo.GetByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Assignee does not exist", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create task", r))
		return
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		UserID:      req.UserID,
		DueDate:     req.DueDate,
	}

	if err := h.taskRepo.Create(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create task", r))
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid task ID", r))
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if fields := validateUpdateTask(&req); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Task not found", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	if !services.CanEditTask(principal.Role, task.UserID, principal.UserID) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You can only edit your own tasks", r))
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update task", r))
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid task ID", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	if !services.CanDeleteTask(principal.Role) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Only managers can delete tasks", r))
		return
	}

	if _, err := h.taskRepo.GetByID(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Task not found", r))
		return
	}

	if err := h.taskRepo.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete task", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func validateCreateTask(req *models.CreateTaskRequest) map[string]string {
	fields := make(map[string]string)

	if req.Title == "" {
		fields["title"] = "Title is required"
	} else if len(req.Title) > 50 {
		fields["title"] = "Title is too long (max 50 chars)"
	}
	if req.Description != nil && len(*req.Description) > 500 {
		fields["description"] = "Description must be less than 500 characters"
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	} else if !models.ValidPriority(req.Priority) {
		fields["priority"] = "Priority must be LOW, MEDIUM or HIGH"
	}
	if req.UserID == uuid.Nil {
		fields["user_id"] = "Invalid user ID"
	}

	return fields
}

func validateUpdateTask(req *models.UpdateTaskRequest) map[string]string {
	fields := make(map[string]string)

	if req.Title != nil {
		if *req.Title == "" {
			fields["title"] = "Title is required"
		} else if len(*req.Title) > 50 {
			fields["title"] = "Title is too long (max 50 chars)"
		}
	}
	if req.Description != nil && len(*req.Description) > 500 {
		fields["description"] = "Description must be less than 500 characters"
	}
	if req.Status != nil && !models.ValidStatus(*req.Status) {
		fields["status"] = "Status must be TODO, IN_PROGRESS or DONE"
	}
	if req.Priority != nil && !models.ValidPriority(*req.Priority) {
		fields["priority"] = "Priority must be LOW, MEDIUM or HIGH"
	}

	return fields
}

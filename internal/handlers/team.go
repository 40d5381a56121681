package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"taskflow-backend/internal/models"
)

type TeamHandler struct {
	userRepo employeeLister
	taskRepo userTaskLister
	now      func() time.Time
}

type employeeLister interface {
	ListEmployees(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userTaskLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

func NewTeamHandler(userRepo employeeLister, taskRepo userTaskLister) *TeamHandler {
	return &TeamHandler{userRepo: userRepo, taskRepo: taskRepo, now: time.Now}
}

// Workload aggregates one member's task counts. Score weighs overdue
// work heavier than merely active work so overloaded members sort first.
type Workload struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	Score     int `json:"score"`
}

type TeamMember struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Workload Workload  `json:"workload"`
}

type TeamMemberDetail struct {
	TeamMember
	Tasks []*models.Task `json:"tasks"`
}

// ComputeWorkload tallies a member's tasks as of now. A task is overdue
// when its due date has passed and it is not DONE.
func ComputeWorkload(tasks []*models.Task, now time.Time) Workload {
	var w Workload
	for _, t := range tasks {
		w.Total++
		switch {
		case t.Status == models.StatusDone:
			w.Completed++
		default:
			w.Active++
			if t.DueDate != nil && t.DueDate.Before(now) {
				w.Overdue++
			}
		}
	}
	w.Score = w.Active*2 + w.Overdue*3
	return w
}

// ListUsers returns all employees, for assignment pickers.
func (h *TeamHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.ListEmployees(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch users", r))
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

// Overview returns every employee with their workload summary.
func (h *TeamHandler) Overview(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.ListEmployees(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch team", r))
		return
	}

	now := h.now()
	members := make([]TeamMember, 0, len(users))
	for _, u := range users {
		tasks, err := h.taskRepo.ListByUser(r.Context(), u.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch team", r))
			return
		}
		members = append(members, TeamMember{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Workload: ComputeWorkload(tasks, now),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// Member returns one employee with their full task list.
func (h *TeamHandler) Member(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	tasks, err := h.taskRepo.ListByUser(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch member tasks", r))
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	detail := TeamMemberDetail{
		TeamMember: TeamMember{
			ID:       user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Workload: ComputeWorkload(tasks, h.now()),
		},
		Tasks: tasks,
	}

	writeJSON(w, http.StatusOK, detail)
}

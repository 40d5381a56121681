package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"taskflow-backend/internal/middleware"
	"taskflow-backend/internal/models"
)

type DashboardHandler struct {
	userRepo employeeLister
	taskRepo dashboardTaskSource
	now      func() time.Time
}

type dashboardTaskSource interface {
	List(ctx context.Context) ([]*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

func NewDashboardHandler(userRepo employeeLister, taskRepo dashboardTaskSource) *DashboardHandler {
	return &DashboardHandler{userRepo: userRepo, taskRepo: taskRepo, now: time.Now}
}

type EmployeeStats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	InProgress     int `json:"inProgress"`
	Completed      int `json:"completed"`
	Urgent         int `json:"urgent"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"`
}

type ManagerStats struct {
	TotalTasks     int `json:"totalTasks"`
	Todo           int `json:"todo"`
	InProgress     int `json:"inProgress"`
	Completed      int `json:"completed"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"`
}

// ComputeEmployeeStats tallies one user's tasks. Urgent means HIGH
// priority and not yet done.
func ComputeEmployeeStats(tasks []*models.Task, now time.Time) EmployeeStats {
	var s EmployeeStats
	for _, t := range tasks {
		s.Total++
		if t.Status == models.StatusDone {
			s.Completed++
			continue
		}
		s.Active++
		if t.Status == models.StatusInProgress {
			s.InProgress++
		}
		if t.Priority == models.PriorityHigh {
			s.Urgent++
		}
		if t.DueDate != nil && t.DueDate.Before(now) {
			s.Overdue++
		}
	}
	s.CompletionRate = completionRate(s.Completed, s.Total)
	return s
}

func ComputeManagerStats(tasks []*models.Task, now time.Time) ManagerStats {
	var s ManagerStats
	for _, t := range tasks {
		s.TotalTasks++
		switch t.Status {
		case models.StatusDone:
			s.Completed++
		case models.StatusInProgress:
			s.InProgress++
		default:
			s.Todo++
		}
		if t.Status != models.StatusDone && t.DueDate != nil && t.DueDate.Before(now) {
			s.Overdue++
		}
	}
	s.CompletionRate = completionRate(s.Completed, s.TotalTasks)
	return s
}

func completionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Stats serves the dashboard for whoever is logged in. Employees see
// their own numbers plus their most recent tasks; managers see the
// organization-wide rollup with per-member workloads.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal.Role == models.RoleManager {
		h.managerStats(w, r)
		return
	}
	h.employeeStats(w, r, principal.UserID)
}

func (h *DashboardHandler) employeeStats(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	tasks, err := h.taskRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch dashboard", r))
		return
	}

	recent := tasks
	if len(recent) > 3 {
		recent = recent[:3]
	}
	if recent == nil {
		recent = []*models.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       ComputeEmployeeStats(tasks, h.now()),
		"recentTasks": recent,
	})
}

func (h *DashboardHandler) managerStats(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch dashboard", r))
		return
	}

	users, err := h.userRepo.ListEmployees(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch dashboard", r))
		return
	}

	now := h.now()
	byUser := make(map[uuid.UUID][]*models.Task)
	for _, t := range tasks {
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}

	members := make([]TeamMember, 0, len(users))
	for _, u := range users {
		members = append(members, TeamMember{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Workload: ComputeWorkload(byUser[u.ID], now),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       ComputeManagerStats(tasks, now),
		"teamMembers": members,
	})
}

package handlers

import (
	"context"
	"log"
	"net/http"

	"taskflow-backend/internal/models"
)

type AIHandler struct {
	summaries summaryService
}

type summaryService interface {
	GetToday(ctx context.Context) (*models.SummaryResponse, error)
	Generate(ctx context.Context) (*models.SummaryResponse, error)
	Regenerate(ctx context.Context) (*models.SummaryResponse, error)
	CheckRateLimit(ctx context.Context) (models.RateLimitStatus, error)
}

func NewAIHandler(summaries summaryService) *AIHandler {
	return &AIHandler{summaries: summaries}
}

// GetSummary returns today's cached summary without generating one.
func (h *AIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.summaries.GetToday(r.Context())
	if err != nil {
		log.Printf("summary read failed: %v", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GenerateSummary returns the cached summary for today if one exists,
// otherwise generates and persists a fresh one.
func (h *AIHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.summaries.Generate(r.Context())
	if err != nil {
		log.Printf("summary generation failed: %v", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RegenerateSummary forces a fresh generation, spending one of today's
// regeneration slots even when a cached summary exists.
func (h *AIHandler) RegenerateSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.summaries.Regenerate(r.Context())
	if err != nil {
		log.Printf("summary regeneration failed: %v", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RateLimit reports the remaining regenerations for today without
// touching the model or the quota.
func (h *AIHandler) RateLimit(w http.ResponseWriter, r *http.Request) {
	status, err := h.summaries.CheckRateLimit(r.Context())
	if err != nil {
		log.Printf("rate limit read failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to read rate limit", r))
		return
	}

	writeJSON(w, http.StatusOK, status)
}

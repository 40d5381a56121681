package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"taskflow-backend/internal/models"
)

const noTasksText = "No tasks available"

type dailySummaryStore interface {
	GetByDate(ctx context.Context, date time.Time) (*models.DailySummaryRecord, error)
	Upsert(ctx context.Context, date time.Time, summary []byte, maxPerDay int) (*models.DailySummaryRecord, error)
}

type taskSource interface {
	Snapshots(ctx context.Context) ([]models.TaskSnapshot, error)
}

// SummaryService owns the daily AI summary: one cached record per UTC
// calendar day, a bounded number of regenerations, and strict validation
// of the model's output before anything is persisted.
type SummaryService struct {
	summaryRepo dailySummaryStore
	taskRepo    taskSource
	ai          CompletionClient
	maxPerDay   int
	now         func() time.Time
}

func NewSummaryService(summaryRepo dailySummaryStore, taskRepo taskSource, ai CompletionClient, maxPerDay int) *SummaryService {
	return &SummaryService{
		summaryRepo: summaryRepo,
		taskRepo:    taskRepo,
		ai:          ai,
		maxPerDay:   maxPerDay,
		now:         time.Now,
	}
}

// WithClock swaps the time source. Tests use this to pin "today".
func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

// TodayKey truncates a moment to its UTC calendar day, the cache key.
func TodayKey(now time.Time) time.Time {
	return time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

// FormatTasksForAI renders tasks as the bullet list embedded in the
// prompt. Empty input yields a fixed sentinel line.
func FormatTasksForAI(tasks []models.TaskSnapshot) string {
	if len(tasks) == 0 {
		return noTasksText
	}

	lines := make([]string, len(tasks))
	for i, task := range tasks {
		status := strings.ReplaceAll(task.Status, "_", " ")
		dueDate := "No due date"
		if task.DueDate != nil {
			dueDate = task.DueDate.Format("Jan 2, 2006")
		}
		lines[i] = fmt.Sprintf("• %s | %s | %s", task.Title, status, dueDate)
	}
	return strings.Join(lines, "\n")
}

// BuildSummaryPrompt is the sole mechanism steering the model toward the
// required JSON shape; ValidateSummary is the enforcement backstop.
func BuildSummaryPrompt(tasksText string, now time.Time) string {
	today := now.Format("1/2/2006")
	return fmt.Sprintf(`You are a task management assistant. Today is %s.

Tasks:
%s

Return ONLY valid JSON with this exact structure:
{
  "completed": ["task1", "task2"],
  "ongoing": ["task3", "task4"],
  "upcoming": ["task5", "task6"],
  "risks": ["risk1", "risk2"],
  "insights": "Brief 1-sentence overall insight"
}

Rules:
- Max 5 items per array
- Use short, clear phrases
- Identify overdue tasks in risks
- insights should be actionable
- Return ONLY the JSON object, no markdown or explanation`, today, tasksText)
}

// ValidateSummary is the single gate between untrusted model output and
// persisted state. It accepts any parsed JSON value and returns true only
// for a non-null object whose completed/ongoing/upcoming/risks fields are
// all arrays of strings. insights is optional and untyped; extra fields
// are ignored. Never panics.
func ValidateSummary(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}

	for _, field := range []string{"completed", "ongoing", "upcoming", "risks"} {
		arr, ok := obj[field].([]any)
		if !ok {
			return false
		}
		for _, item := range arr {
			if _, ok := item.(string); !ok {
				return false
			}
		}
	}
	return true
}

// EmptySummary is the sentinel stored when no tasks exist, distinguishing
// "nothing to summarize" from "not generated yet".
func EmptySummary() models.DailySummary {
	return models.DailySummary{
		Completed: []string{},
		Ongoing:   []string{},
		Upcoming:  []string{},
		Risks:     []string{},
		Insights:  "No tasks found. Create your first task to get started!",
	}
}

func (s *SummaryService) rateStatus(count int, today time.Time) models.RateLimitStatus {
	remaining := s.maxPerDay - count
	if remaining < 0 {
		remaining = 0
	}
	return models.RateLimitStatus{
		Allowed:   count < s.maxPerDay,
		Remaining: remaining,
		ResetAt:   today.AddDate(0, 0, 1),
	}
}

// CheckRateLimit computes the unconsumed quota for today. Pure read: it
// never increments the counter; that happens only at persistence.
func (s *SummaryService) CheckRateLimit(ctx context.Context) (models.RateLimitStatus, error) {
	today := TodayKey(s.now())
	count, err := s.todayCount(ctx, today)
	if err != nil {
		return models.RateLimitStatus{}, err
	}
	return s.rateStatus(count, today), nil
}

func (s *SummaryService) todayCount(ctx context.Context, today time.Time) (int, error) {
	rec, err := s.summaryRepo.GetByDate(ctx, today)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return rec.RegenerateCount, nil
}

// GetToday is the read path: return the cached summary if one exists,
// never generating and never consuming quota. An empty-object payload is
// a quota-tracking row without a displayable summary.
func (s *SummaryService) GetToday(ctx context.Context) (*models.SummaryResponse, error) {
	today := TodayKey(s.now())

	rec, err := s.summaryRepo.GetByDate(ctx, today)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.SummaryResponse{
				Summary:   nil,
				Cached:    false,
				RateLimit: s.rateStatus(0, today),
				Message:   "No summary for today yet. Generate one to see your daily overview.",
			}, nil
		}
		return nil, err
	}

	rate := s.rateStatus(rec.RegenerateCount, today)

	if !rec.HasSummary() {
		return &models.SummaryResponse{
			Summary:   nil,
			Cached:    false,
			RateLimit: rate,
			Message:   "No summary for today yet. Generate one to see your daily overview.",
		}, nil
	}

	summary, err := decodeSummary(rec.Summary)
	if err != nil {
		return nil, err
	}

	generatedAt := rec.CreatedAt
	return &models.SummaryResponse{
		Summary:     summary,
		Cached:      true,
		GeneratedAt: &generatedAt,
		RateLimit:   rate,
	}, nil
}

// Generate is the read-or-generate path: a non-empty cached summary wins
// without touching the quota; otherwise generation runs if the cap allows.
func (s *SummaryService) Generate(ctx context.Context) (*models.SummaryResponse, error) {
	today := TodayKey(s.now())

	rec, err := s.summaryRepo.GetByDate(ctx, today)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if rec != nil && rec.HasSummary() {
		summary, err := decodeSummary(rec.Summary)
		if err != nil {
			return nil, err
		}
		generatedAt := rec.CreatedAt
		return &models.SummaryResponse{
			Summary:     summary,
			Cached:      true,
			GeneratedAt: &generatedAt,
			RateLimit:   s.rateStatus(rec.RegenerateCount, today),
		}, nil
	}

	count := 0
	if rec != nil {
		count = rec.RegenerateCount
	}
	if rate := s.rateStatus(count, today); !rate.Allowed {
		return nil, &RateLimitError{
			Message:   fmt.Sprintf("Daily generation limit reached (%d/day)", s.maxPerDay),
			RateLimit: rate,
		}
	}

	return s.generate(ctx, today)
}

// Regenerate is the forced write path: the rate limit is checked before
// any task fetch or model call, then a fresh summary always replaces the
// cached one.
func (s *SummaryService) Regenerate(ctx context.Context) (*models.SummaryResponse, error) {
	today := TodayKey(s.now())

	count, err := s.todayCount(ctx, today)
	if err != nil {
		return nil, err
	}
	if rate := s.rateStatus(count, today); !rate.Allowed {
		return nil, &RateLimitError{
			Message:   fmt.Sprintf("Daily regeneration limit reached (%d/day)", s.maxPerDay),
			RateLimit: rate,
		}
	}

	return s.generate(ctx, today)
}

// generate runs fetch → format → prompt → complete → parse → validate →
// upsert. The counter increments only inside the upsert, so failures on
// any earlier step leave the quota untouched, and the upsert itself
// enforces the cap atomically against concurrent callers.
func (s *SummaryService) generate(ctx context.Context, today time.Time) (*models.SummaryResponse, error) {
	tasks, err := s.taskRepo.Snapshots(ctx)
	if err != nil {
		return nil, err
	}

	// No tasks: persist the sentinel without calling the model.
	if len(tasks) == 0 {
		empty := EmptySummary()
		return s.persist(ctx, today, &empty)
	}

	prompt := BuildSummaryPrompt(FormatTasksForAI(tasks), s.now())

	raw, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		log.Printf("[AI_SUMMARY_ERROR]: %v", err)
		return nil, ClassifyProviderError(err)
	}

	if strings.TrimSpace(raw) == "" {
		return nil, &GenerationError{Message: "Empty AI response"}
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("failed to parse AI response: %v", err)
		return nil, &GenerationError{Message: "Invalid AI response format"}
	}

	if !ValidateSummary(parsed) {
		log.Printf("invalid summary structure: %.200s", raw)
		return nil, &GenerationError{Message: "AI returned invalid summary structure"}
	}

	summary := &models.DailySummary{}
	if err := json.Unmarshal([]byte(raw), summary); err != nil {
		return nil, &GenerationError{Message: "Invalid AI response format"}
	}

	return s.persist(ctx, today, summary)
}

func (s *SummaryService) persist(ctx context.Context, today time.Time, summary *models.DailySummary) (*models.SummaryResponse, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	rec, err := s.summaryRepo.Upsert(ctx, today, payload, s.maxPerDay)
	if err != nil {
		// No row back means a concurrent caller spent the last slot
		// between our check and the write.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &RateLimitError{
				Message:   fmt.Sprintf("Daily regeneration limit reached (%d/day)", s.maxPerDay),
				RateLimit: s.rateStatus(s.maxPerDay, today),
			}
		}
		return nil, err
	}

	generatedAt := s.now()
	return &models.SummaryResponse{
		Summary:     summary,
		Cached:      false,
		GeneratedAt: &generatedAt,
		RateLimit:   s.rateStatus(rec.RegenerateCount, today),
	}, nil
}

func decodeSummary(raw json.RawMessage) (*models.DailySummary, error) {
	summary := &models.DailySummary{}
	if err := json.Unmarshal(raw, summary); err != nil {
		return nil, fmt.Errorf("corrupt cached summary: %w", err)
	}
	return summary, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"taskflow-backend/internal/models"
)

// ─── Fakes ───

type fakeSummaryStore struct {
	rec        *models.DailySummaryRecord
	upsertErr  error
	upsertHits int
}

func (f *fakeSummaryStore) GetByDate(ctx context.Context, date time.Time) (*models.DailySummaryRecord, error) {
	if f.rec == nil || !f.rec.Date.Equal(date) {
		return nil, pgx.ErrNoRows
	}
	return f.rec, nil
}

func (f *fakeSummaryStore) Upsert(ctx context.Context, date time.Time, summary []byte, maxPerDay int) (*models.DailySummaryRecord, error) {
	f.upsertHits++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.rec == nil || !f.rec.Date.Equal(date) {
		f.rec = &models.DailySummaryRecord{
			Date:            date,
			Summary:         summary,
			RegenerateCount: 1,
			CreatedAt:       date,
		}
		return f.rec, nil
	}
	if f.rec.RegenerateCount >= maxPerDay {
		return nil, pgx.ErrNoRows
	}
	f.rec.Summary = summary
	f.rec.RegenerateCount++
	return f.rec, nil
}

type fakeTaskSource struct {
	tasks []models.TaskSnapshot
	err   error
}

func (f *fakeTaskSource) Snapshots(ctx context.Context) ([]models.TaskSnapshot, error) {
	return f.tasks, f.err
}

type fakeCompletion struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeCompletion) Close() error { return nil }

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newTestService(store *fakeSummaryStore, tasks *fakeTaskSource, ai *fakeCompletion, maxPerDay int) *SummaryService {
	return NewSummaryService(store, tasks, ai, maxPerDay).WithClock(func() time.Time { return fixedNow })
}

func validResponse() string {
	return `{"completed":["Ship release"],"ongoing":["Write docs"],"upcoming":["Plan sprint"],"risks":["Docs overdue"],"insights":"Focus on the docs."}`
}

// ─── Pure Helpers ───

func TestTodayKey(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"midday UTC",
			time.Date(2024, 3, 15, 14, 30, 45, 0, time.UTC),
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"exact midnight",
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"non-UTC zone converts before truncating",
			time.Date(2024, 3, 15, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)),
			time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TodayKey(tc.in)
			if !got.Equal(tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFormatTasksForAI(t *testing.T) {
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("empty list", func(t *testing.T) {
		if got := FormatTasksForAI(nil); got != "No tasks available" {
			t.Errorf("Expected sentinel line, got %q", got)
		}
	})

	t.Run("formats status and due date", func(t *testing.T) {
		tasks := []models.TaskSnapshot{
			{Title: "Ship release", Status: "IN_PROGRESS", DueDate: &due},
			{Title: "Plan sprint", Status: "TODO", DueDate: nil},
		}
		got := FormatTasksForAI(tasks)
		want := "• Ship release | IN PROGRESS | Mar 15, 2024\n• Plan sprint | TODO | No due date"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt("• Ship release | TODO | No due date", fixedNow)

	if !strings.Contains(prompt, "Today is 3/15/2024") {
		t.Errorf("Prompt missing formatted date: %q", prompt)
	}
	if !strings.Contains(prompt, "• Ship release | TODO | No due date") {
		t.Error("Prompt missing task list")
	}
	if !strings.Contains(prompt, "Return ONLY the JSON object") {
		t.Error("Prompt missing JSON-only instruction")
	}
}

func TestValidateSummary(t *testing.T) {
	tests := []struct {
		name string
		json string
		want bool
	}{
		{"valid full", validResponse(), true},
		{"valid empty arrays", `{"completed":[],"ongoing":[],"upcoming":[],"risks":[]}`, true},
		{"missing insights ok", `{"completed":["a"],"ongoing":[],"upcoming":[],"risks":[]}`, true},
		{"extra fields ignored", `{"completed":[],"ongoing":[],"upcoming":[],"risks":[],"extra":42}`, true},
		{"null", `null`, false},
		{"number", `42`, false},
		{"string", `"summary"`, false},
		{"array", `[]`, false},
		{"missing field", `{"completed":[],"ongoing":[],"upcoming":[]}`, false},
		{"field not an array", `{"completed":"not an array","ongoing":[],"upcoming":[],"risks":[]}`, false},
		{"field null", `{"completed":null,"ongoing":[],"upcoming":[],"risks":[]}`, false},
		{"non-string items", `{"completed":[1,2],"ongoing":[],"upcoming":[],"risks":[]}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tc.json), &v); err != nil {
				t.Fatalf("Failed to parse test input: %v", err)
			}
			if got := ValidateSummary(v); got != tc.want {
				t.Errorf("Expected %v for %s, got %v", tc.want, tc.json, got)
			}
		})
	}
}

// ─── Rate Limit ───

func TestCheckRateLimit_FreshDay(t *testing.T) {
	svc := newTestService(&fakeSummaryStore{}, &fakeTaskSource{}, &fakeCompletion{}, 3)

	status, err := svc.CheckRateLimit(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !status.Allowed {
		t.Error("Expected fresh day to be allowed")
	}
	if status.Remaining != 3 {
		t.Errorf("Expected remaining 3, got %d", status.Remaining)
	}

	wantReset := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	if !status.ResetAt.Equal(wantReset) {
		t.Errorf("Expected reset at %v, got %v", wantReset, status.ResetAt)
	}
}

func TestCheckRateLimit_Exhausted(t *testing.T) {
	store := &fakeSummaryStore{rec: &models.DailySummaryRecord{
		Date:            TodayKey(fixedNow),
		Summary:         json.RawMessage(`{}`),
		RegenerateCount: 3,
	}}
	svc := newTestService(store, &fakeTaskSource{}, &fakeCompletion{}, 3)

	status, err := svc.CheckRateLimit(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status.Allowed {
		t.Error("Expected exhausted day to be disallowed")
	}
	if status.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", status.Remaining)
	}
}

// ─── Read Path ───

func TestGetToday_NoRecord(t *testing.T) {
	svc := newTestService(&fakeSummaryStore{}, &fakeTaskSource{}, &fakeCompletion{}, 3)

	resp, err := svc.GetToday(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Summary != nil {
		t.Error("Expected nil summary for empty day")
	}
	if resp.Message == "" {
		t.Error("Expected explanatory message")
	}
	if resp.RateLimit.Remaining != 3 {
		t.Errorf("Expected full quota, got %d", resp.RateLimit.Remaining)
	}
}

func TestGetToday_QuotaRowWithoutSummary(t *testing.T) {
	// A row can exist purely for quota tracking with an empty payload.
	store := &fakeSummaryStore{rec: &models.DailySummaryRecord{
		Date:            TodayKey(fixedNow),
		Summary:         json.RawMessage(`{}`),
		RegenerateCount: 1,
	}}
	svc := newTestService(store, &fakeTaskSource{}, &fakeCompletion{}, 3)

	resp, err := svc.GetToday(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Summary != nil {
		t.Error("Expected nil summary for empty payload")
	}
	if resp.RateLimit.Remaining != 2 {
		t.Errorf("Expected remaining 2, got %d", resp.RateLimit.Remaining)
	}
}

func TestGetToday_Cached(t *testing.T) {
	store := &fakeSummaryStore{rec: &models.DailySummaryRecord{
		Date:            TodayKey(fixedNow),
		Summary:         json.RawMessage(validResponse()),
		RegenerateCount: 1,
		CreatedAt:       fixedNow,
	}}
	ai := &fakeCompletion{}
	svc := newTestService(store, &fakeTaskSource{}, ai, 3)

	resp, err := svc.GetToday(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Summary == nil || !resp.Cached {
		t.Fatal("Expected cached summary")
	}
	if resp.Summary.Insights != "Focus on the docs." {
		t.Errorf("Unexpected insights: %q", resp.Summary.Insights)
	}
	if ai.calls != 0 {
		t.Errorf("Read path must not call the model, got %d calls", ai.calls)
	}
}

// ─── Generate ───

func TestGenerate_CacheHitSkipsModelAndQuota(t *testing.T) {
	store := &fakeSummaryStore{rec: &models.DailySummaryRecord{
		Date:            TodayKey(fixedNow),
		Summary:         json.RawMessage(validResponse()),
		RegenerateCount: 2,
		CreatedAt:       fixedNow,
	}}
	ai := &fakeCompletion{}
	svc := newTestService(store, &fakeTaskSource{}, ai, 3)

	resp, err := svc.Generate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !resp.Cached {
		t.Error("Expected cached response")
	}
	if ai.calls != 0 {
		t.Error("Cache hit must not call the model")
	}
	if store.rec.RegenerateCount != 2 {
		t.Errorf("Cache hit must not spend quota, count went to %d", store.rec.RegenerateCount)
	}
}

func TestGenerate_Success(t *testing.T) {
	store := &fakeSummaryStore{}
	tasks := &fakeTaskSource{tasks: []models.TaskSnapshot{{Title: "Ship release", Status: "TODO"}}}
	ai := &fakeCompletion{response: validResponse()}
	svc := newTestService(store, tasks, ai, 3)

	resp, err := svc.Generate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Cached {
		t.Error("Fresh generation must not be marked cached")
	}
	if resp.Summary == nil || len(resp.Summary.Completed) != 1 {
		t.Fatal("Expected parsed summary")
	}
	if resp.RateLimit.Remaining != 2 {
		t.Errorf("Expected remaining 2 after first generation, got %d", resp.RateLimit.Remaining)
	}
	if ai.calls != 1 {
		t.Errorf("Expected one model call, got %d", ai.calls)
	}
}

func TestGenerate_NoTasksPersistsSentinel(t *testing.T) {
	store := &fakeSummaryStore{}
	ai := &fakeCompletion{}
	svc := newTestService(store, &fakeTaskSource{}, ai, 3)

	resp, err := svc.Generate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ai.calls != 0 {
		t.Error("No-task day must not call the model")
	}
	if resp.Summary == nil || resp.Summary.Insights != "No tasks found. Create your first task to get started!" {
		t.Fatalf("Expected empty-state sentinel, got %+v", resp.Summary)
	}
	if store.upsertHits != 1 {
		t.Error("Sentinel must be persisted")
	}
	if resp.RateLimit.Remaining != 2 {
		t.Errorf("Sentinel persistence spends quota, expected remaining 2, got %d", resp.RateLimit.Remaining)
	}
}

func TestGenerate_InvalidResponsesDoNotSpendQuota(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty response", "   "},
		{"not json", "Sure! Here is your summary:"},
		{"wrong structure", `{"completed":"not an array","ongoing":[],"upcoming":[],"risks":[]}`},
		{"json array", `["a","b"]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeSummaryStore{}
			tasks := &fakeTaskSource{tasks: []models.TaskSnapshot{{Title: "Ship release", Status: "TODO"}}}
			svc := newTestService(store, tasks, &fakeCompletion{response: tc.response}, 3)

			_, err := svc.Generate(context.Background())

			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("Expected GenerationError, got %v", err)
			}
			if store.upsertHits != 0 {
				t.Error("Failed generation must not touch the store")
			}

			status, _ := svc.CheckRateLimit(context.Background())
			if status.Remaining != 3 {
				t.Errorf("Failed generation must not spend quota, remaining %d", status.Remaining)
			}
		})
	}
}

// ─── Regenerate ───

func TestRegenerate_SpendsQuotaEachTime(t *testing.T) {
	store := &fakeSummaryStore{}
	tasks := &fakeTaskSource{tasks: []models.TaskSnapshot{{Title: "Ship release", Status: "TODO"}}}
	ai := &fakeCompletion{response: validResponse()}
	svc := newTestService(store, tasks, ai, 2)

	first, err := svc.Regenerate(context.Background())
	if err != nil {
		t.Fatalf("First regenerate failed: %v", err)
	}
	if first.RateLimit.Remaining != 1 {
		t.Errorf("Expected remaining 1, got %d", first.RateLimit.Remaining)
	}

	second, err := svc.Regenerate(context.Background())
	if err != nil {
		t.Fatalf("Second regenerate failed: %v", err)
	}
	if second.RateLimit.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", second.RateLimit.Remaining)
	}

	_, err = svc.Regenerate(context.Background())
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("Expected RateLimitError on third call, got %v", err)
	}
	if rateErr.RateLimit.Remaining != 0 {
		t.Errorf("Expected remaining 0 in error, got %d", rateErr.RateLimit.Remaining)
	}
	if ai.calls != 2 {
		t.Errorf("Capped call must not reach the model, got %d calls", ai.calls)
	}
}

func TestRegenerate_CapExhaustedFailsFast(t *testing.T) {
	store := &fakeSummaryStore{rec: &models.DailySummaryRecord{
		Date:            TodayKey(fixedNow),
		Summary:         json.RawMessage(validResponse()),
		RegenerateCount: 3,
	}}
	tasks := &fakeTaskSource{tasks: []models.TaskSnapshot{{Title: "Ship release", Status: "TODO"}}}
	ai := &fakeCompletion{response: validResponse()}
	svc := newTestService(store, tasks, ai, 3)

	_, err := svc.Regenerate(context.Background())

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}
	if ai.calls != 0 {
		t.Error("Exhausted cap must fail before the model call")
	}
	if store.upsertHits != 0 {
		t.Error("Exhausted cap must not attempt an upsert")
	}
}

func TestRegenerate_ConcurrentLoserGetsRateLimitError(t *testing.T) {
	// The store-level conditional write is the authority: when it
	// returns no row, another caller spent the last slot after our
	// fail-fast check passed.
	store := &fakeSummaryStore{upsertErr: pgx.ErrNoRows}
	tasks := &fakeTaskSource{tasks: []models.TaskSnapshot{{Title: "Ship release", Status: "TODO"}}}
	svc := newTestService(store, tasks, &fakeCompletion{response: validResponse()}, 3)

	_, err := svc.Regenerate(context.Background())

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}
	if rateErr.RateLimit.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", rateErr.RateLimit.Remaining)
	}
}

func TestRegenerate_ReplacesCachedSummary(t *testing.T) {
	store := &fakeSummaryStore{rec: &models.DailySummaryRecord{
		Date:            TodayKey(fixedNow),
		Summary:         json.RawMessage(`{"completed":["Old"],"ongoing":[],"upcoming":[],"risks":[],"insights":"old"}`),
		RegenerateCount: 1,
		CreatedAt:       fixedNow,
	}}
	tasks := &fakeTaskSource{tasks: []models.TaskSnapshot{{Title: "Ship release", Status: "TODO"}}}
	ai := &fakeCompletion{response: validResponse()}
	svc := newTestService(store, tasks, ai, 3)

	resp, err := svc.Regenerate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Cached {
		t.Error("Regenerate must return a fresh summary")
	}
	if resp.Summary.Insights != "Focus on the docs." {
		t.Errorf("Expected replaced summary, got %q", resp.Summary.Insights)
	}
	if store.rec.RegenerateCount != 2 {
		t.Errorf("Expected count 2, got %d", store.rec.RegenerateCount)
	}
}

package models

import (
	"encoding/json"
	"time"
)

// DailySummary is the structured payload produced by the completion model.
// Insights is optional free text and is never type-checked by the validator.
type DailySummary struct {
	Completed []string `json:"completed"`
	Ongoing   []string `json:"ongoing"`
	Upcoming  []string `json:"upcoming"`
	Risks     []string `json:"risks"`
	Insights  string   `json:"insights,omitempty"`
}

// DailySummaryRecord is one row per UTC calendar day. Date is truncated to
// midnight UTC and unique; RegenerateCount never decreases within a day.
type DailySummaryRecord struct {
	Date            time.Time       `json:"date"`
	Summary         json.RawMessage `json:"summary"`
	RegenerateCount int             `json:"regenerate_count"`
	CreatedAt       time.Time       `json:"created_at"`
}

// HasSummary reports whether the stored payload is a real summary rather
// than the empty-object placeholder written when a row only tracks quota.
func (r *DailySummaryRecord) HasSummary() bool {
	if len(r.Summary) == 0 {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Summary, &fields); err != nil {
		return false
	}
	return len(fields) > 0
}

type RateLimitStatus struct {
	Allowed   bool      `json:"-"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

type SummaryResponse struct {
	Summary     *DailySummary   `json:"summary"`
	Cached      bool            `json:"cached"`
	GeneratedAt *time.Time      `json:"generatedAt,omitempty"`
	RateLimit   RateLimitStatus `json:"rateLimit"`
	Message     string          `json:"message,omitempty"`
}

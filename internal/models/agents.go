package models

import "time"

// AgentState is the lifecycle state of a named analysis task
type AgentState string

const (
	AgentIdle       AgentState = "idle"
	AgentProcessing AgentState = "processing"
	AgentActive     AgentState = "active"
	AgentError      AgentState = "error"
)

// AgentStatus is the live status of one analysis task
type AgentStatus struct {
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Status        AgentState `json:"status"`
	LastActivity  time.Time  `json:"last_activity"`
	AnalysesCount int64      `json:"analyses_count"`
	ErrorCount    int64      `json:"error_count"`
	Accuracy      float64    `json:"accuracy"`
	LastError     string     `json:"last_error,omitempty"`
}

// AgentEvent is one task execution, shipped to the analytics store
type AgentEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	RunID            string    `json:"run_id"`
	MatchID          string    `json:"match_id"`
	Agent            string    `json:"agent"`
	Category         string    `json:"category"`
	Status           string    `json:"status"` // "ok", "error"
	Advantage        Advantage `json:"advantage"`
	Confidence       float64   `json:"confidence"`
	DurationMs       uint32    `json:"duration_ms"`
	PromptTokens     uint32    `json:"prompt_tokens"`
	CompletionTokens uint32    `json:"completion_tokens"`
	Model            string    `json:"model"`
}

// AgentUsage aggregates analytics for one agent
type AgentUsage struct {
	Agent          string  `json:"agent"`
	Runs           uint64  `json:"runs"`
	Errors         uint64  `json:"errors"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
	AvgConfidence  float64 `json:"avg_confidence"`
	TotalTokens    uint64  `json:"total_tokens"`
	NoAdvantagePct float64 `json:"no_advantage_pct"`
}

// UsageBucket is one row of a grouped usage breakdown
type UsageBucket struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

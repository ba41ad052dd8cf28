package logic

import (
	"fmt"
	"time"
)

// UsageQuery holds parameters for a grouped agent_events breakdown
type UsageQuery struct {
	Dimension string    `json:"dimension"` // Group by: agent, category, model, status, advantage
	Metric    string    `json:"metric"`    // runs, errors, tokens, duration, confidence, no_advantage
	Agent     string    `json:"agent"`     // WHERE agent = ?
	Category  string    `json:"category"`  // WHERE category = ?
	MatchID   string    `json:"match_id"`  // WHERE match_id = ?
	Since     time.Time `json:"since"`
	Until     time.Time `json:"until"`
	Limit     int       `json:"limit"`
}

// allowedDimensions maps API values to agent_events columns
var allowedDimensions = map[string]string{
	"agent":     "agent",
	"category":  "category",
	"model":     "model",
	"status":    "status",
	"advantage": "advantage",
	"match":     "match_id",
}

// allowedMetrics maps API values to aggregate expressions. Every metric is
// cast to Float64 so the result scans into one column type.
var allowedMetrics = map[string]string{
	"runs":         "toFloat64(count())",
	"errors":       "toFloat64(countIf(status = 'error'))",
	"tokens":       "toFloat64(sum(prompt_tokens + completion_tokens))",
	"duration":     "toFloat64(avg(duration_ms))",
	"confidence":   "ifNotFinite(avgIf(confidence, status = 'ok'), 0)",
	"no_advantage": "if(countIf(status = 'ok') = 0, 0, countIf(advantage = 'none' AND status = 'ok') / countIf(status = 'ok'))",
}

// BuildUsageQuery constructs a parameterised ClickHouse query over agent_events
func BuildUsageQuery(req UsageQuery) (string, []interface{}, error) {
	dimension := req.Dimension
	if dimension == "" {
		dimension = "agent"
	}
	groupByCol, ok := allowedDimensions[dimension]
	if !ok {
		return "", nil, fmt.Errorf("invalid dimension %q: %w", req.Dimension, ErrInvalidInput)
	}

	metric := req.Metric
	if metric == "" {
		metric = "runs"
	}
	selectClause, ok := allowedMetrics[metric]
	if !ok {
		return "", nil, fmt.Errorf("invalid metric %q: %w", req.Metric, ErrInvalidInput)
	}

	query := fmt.Sprintf("SELECT toString(%s) AS label, %s AS value FROM agent_events WHERE 1=1", groupByCol, selectClause)
	var args []interface{}

	if req.Agent != "" {
		query += " AND agent = ?"
		args = append(args, req.Agent)
	}
	if req.Category != "" {
		query += " AND category = ?"
		args = append(args, req.Category)
	}
	if req.MatchID != "" {
		query += " AND match_id = ?"
		args = append(args, req.MatchID)
	}
	if !req.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, req.Since)
	}
	if !req.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, req.Until)
	}

	query += fmt.Sprintf(" GROUP BY %s ORDER BY value DESC", groupByCol)

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	return query, args, nil
}

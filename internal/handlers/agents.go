package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/models"
)

// AgentStatuses lists every analysis task with its current state
// @Summary Agent Status
// @Tags Agents
// @Produce json
// @Success 200 {array} models.AgentStatus
// @Failure 500 {object} models.ErrorResponse
// @Router /agents/status [get]
func (h *Handler) AgentStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.analyzer.AgentStatuses(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to list agent statuses")
		return
	}
	h.jsonResponse(w, http.StatusOK, statuses)
}

// AgentUsage returns per-task execution analytics. ClickHouse is used when
// configured, Redis counters otherwise.
// @Summary Agent Usage
// @Tags Agents
// @Produce json
// @Param hours query int false "Window in hours (ClickHouse only)" default(168)
// @Success 200 {array} models.AgentUsage
// @Failure 500 {object} models.ErrorResponse
// @Router /agents/usage [get]
func (h *Handler) AgentUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.usage != nil {
		usage, err := h.usage.AgentUsage(ctx, usageSince(r))
		if err != nil {
			h.serviceError(w, err, "Failed to query agent usage")
			return
		}
		h.jsonResponse(w, http.StatusOK, usage)
		return
	}

	if h.usageCounters == nil {
		h.jsonResponse(w, http.StatusOK, []models.AgentUsage{})
		return
	}

	statuses, err := h.analyzer.AgentStatuses(ctx)
	if err != nil {
		h.serviceError(w, err, "Failed to list agent statuses")
		return
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.Name
	}
	usage, err := h.usageCounters.Usage(ctx, names)
	if err != nil {
		h.serviceError(w, err, "Failed to read agent counters")
		return
	}
	h.jsonResponse(w, http.StatusOK, usage)
}

// AgentUsageBreakdown groups task executions by one dimension
// @Summary Agent Usage Breakdown
// @Tags Agents
// @Produce json
// @Param dimension query string false "agent, category, model, status, advantage or match" default(agent)
// @Param metric query string false "runs, errors, tokens, duration, confidence or no_advantage" default(runs)
// @Param agent query string false "Filter by agent"
// @Param category query string false "Filter by category"
// @Param match query string false "Filter by match ID"
// @Param hours query int false "Window in hours" default(168)
// @Param limit query int false "Limit" default(100)
// @Success 200 {array} models.UsageBucket
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /agents/usage/breakdown [get]
func (h *Handler) AgentUsageBreakdown(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "Analytics store not configured")
		return
	}

	q := r.URL.Query()
	buckets, err := h.usage.Breakdown(r.Context(), logic.UsageQuery{
		Dimension: q.Get("dimension"),
		Metric:    q.Get("metric"),
		Agent:     q.Get("agent"),
		Category:  q.Get("category"),
		MatchID:   q.Get("match"),
		Since:     usageSince(r),
		Limit:     queryLimit(r, 100, 1000),
	})
	if err != nil {
		h.serviceError(w, err, "Failed to query usage breakdown")
		return
	}
	h.jsonResponse(w, http.StatusOK, buckets)
}

// usageSince parses ?hours= into a window start, one week by default
func usageSince(r *http.Request) time.Time {
	hours := 168
	if v := r.URL.Query().Get("hours"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 24*365 {
			hours = parsed
		}
	}
	return time.Now().Add(-time.Duration(hours) * time.Hour)
}

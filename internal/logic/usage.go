package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/courtvision/prediction-api/internal/models"
)

// UsageService reads per-agent analytics from the agent_events table.
type UsageService struct {
	ch driver.Conn
}

func NewUsageService(ch driver.Conn) *UsageService {
	return &UsageService{ch: ch}
}

// AgentUsage aggregates task executions since the given time, busiest first
func (s *UsageService) AgentUsage(ctx context.Context, since time.Time) ([]models.AgentUsage, error) {
	rows, err := s.ch.Query(ctx, `
		SELECT
			agent,
			count() AS runs,
			countIf(status = 'error') AS errors,
			avg(duration_ms) AS avg_duration,
			ifNotFinite(avgIf(confidence, status = 'ok'), 0) AS avg_confidence,
			sum(prompt_tokens + completion_tokens) AS tokens,
			if(countIf(status = 'ok') = 0, 0, countIf(advantage = 'none' AND status = 'ok') / countIf(status = 'ok')) AS no_advantage
		FROM agent_events
		WHERE timestamp >= ?
		GROUP BY agent
		ORDER BY runs DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent usage: %w", err)
	}
	defer rows.Close()

	usage := make([]models.AgentUsage, 0)
	for rows.Next() {
		var u models.AgentUsage
		if err := rows.Scan(&u.Agent, &u.Runs, &u.Errors, &u.AvgDurationMs, &u.AvgConfidence, &u.TotalTokens, &u.NoAdvantagePct); err != nil {
			return nil, fmt.Errorf("failed to scan agent usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// Breakdown runs a grouped query built from req
func (s *UsageService) Breakdown(ctx context.Context, req UsageQuery) ([]models.UsageBucket, error) {
	query, args, err := BuildUsageQuery(req)
	if err != nil {
		return nil, err
	}

	rows, err := s.ch.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage breakdown: %w", err)
	}
	defer rows.Close()

	buckets := make([]models.UsageBucket, 0)
	for rows.Next() {
		var b models.UsageBucket
		if err := rows.Scan(&b.Label, &b.Value); err != nil {
			return nil, fmt.Errorf("failed to scan usage bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

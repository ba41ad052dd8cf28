package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/courtvision/prediction-api/internal/models"
)

// StatStore keeps running per-agent usage counters
type StatStore interface {
	Record(ctx context.Context, events []*models.AgentEvent) error
	Usage(ctx context.Context, agents []string) ([]models.AgentUsage, error)
}

// RedisStatStore implements StatStore with one hash per agent
type RedisStatStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStatStore(client *redis.Client) *RedisStatStore {
	return &RedisStatStore{client: client, prefix: "courtvision:usage:"}
}

func (s *RedisStatStore) Record(ctx context.Context, events []*models.AgentEvent) error {
	pipe := s.client.Pipeline()
	for _, e := range events {
		key := s.prefix + e.Agent
		pipe.HIncrBy(ctx, key, "runs", 1)
		pipe.HIncrBy(ctx, key, "duration_ms", int64(e.DurationMs))
		pipe.HIncrBy(ctx, key, "tokens", int64(e.PromptTokens)+int64(e.CompletionTokens))
		if e.Status == "error" {
			pipe.HIncrBy(ctx, key, "errors", 1)
			continue
		}
		pipe.HIncrByFloat(ctx, key, "confidence_sum", e.Confidence)
		if e.Advantage == models.AdvantageNone {
			pipe.HIncrBy(ctx, key, "no_advantage", 1)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func (s *RedisStatStore) Usage(ctx context.Context, agents []string) ([]models.AgentUsage, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(agents))
	for i, name := range agents {
		cmds[i] = pipe.HGetAll(ctx, s.prefix+name)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	out := make([]models.AgentUsage, 0, len(agents))
	for i, name := range agents {
		out = append(out, usageFromHash(name, cmds[i].Val()))
	}
	return out, nil
}

func usageFromHash(agent string, h map[string]string) models.AgentUsage {
	u := models.AgentUsage{Agent: agent}
	u.Runs, _ = strconv.ParseUint(h["runs"], 10, 64)
	u.Errors, _ = strconv.ParseUint(h["errors"], 10, 64)
	u.TotalTokens, _ = strconv.ParseUint(h["tokens"], 10, 64)
	if u.Runs == 0 {
		return u
	}
	duration, _ := strconv.ParseFloat(h["duration_ms"], 64)
	u.AvgDurationMs = duration / float64(u.Runs)
	if ok := u.Runs - u.Errors; ok > 0 {
		sum, _ := strconv.ParseFloat(h["confidence_sum"], 64)
		none, _ := strconv.ParseFloat(h["no_advantage"], 64)
		u.AvgConfidence = sum / float64(ok)
		u.NoAdvantagePct = none / float64(ok)
	}
	return u
}

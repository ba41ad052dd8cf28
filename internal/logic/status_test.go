package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courtvision/prediction-api/internal/models"
)

func TestMemoryStatusStore_Transitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStatusStore()
	if err := s.Init(ctx, []AgentRef{{Name: "serve", Category: "performance"}, {Name: "momentum", Category: "mental"}}); err != nil {
		t.Fatal(err)
	}

	list, _ := s.List(ctx)
	if len(list) != 2 || list[0].Name != "serve" || list[0].Status != models.AgentIdle {
		t.Fatalf("unexpected initial list %+v", list)
	}

	steps := []struct {
		do   func() error
		want models.AgentState
	}{
		{func() error { return s.Start(ctx, "serve") }, models.AgentProcessing},
		{func() error { return s.Succeed(ctx, "serve", 0.8) }, models.AgentActive},
		{func() error { return s.Start(ctx, "serve") }, models.AgentProcessing},
		{func() error { return s.Fail(ctx, "serve", errors.New("timeout")) }, models.AgentError},
		{func() error { return s.Start(ctx, "serve") }, models.AgentProcessing},
		{func() error { return s.Succeed(ctx, "serve", 0.6) }, models.AgentActive},
	}
	for i, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		list, _ := s.List(ctx)
		if list[0].Status != step.want {
			t.Errorf("step %d: expected %s, got %s", i, step.want, list[0].Status)
		}
	}

	list, _ = s.List(ctx)
	serve := list[0]
	if serve.AnalysesCount != 2 || serve.ErrorCount != 1 {
		t.Errorf("unexpected counters %+v", serve)
	}
	if serve.Accuracy < 0.699 || serve.Accuracy > 0.701 {
		t.Errorf("expected running accuracy 0.7, got %v", serve.Accuracy)
	}
	if list[1].Status != models.AgentIdle {
		t.Errorf("untouched agent changed state: %s", list[1].Status)
	}
}

func TestMemoryStatusStore_UnknownAgent(t *testing.T) {
	s := NewMemoryStatusStore()
	if err := s.Start(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParseAgentStatus(t *testing.T) {
	ref := AgentRef{Name: "serve", Category: "performance"}

	empty := parseAgentStatus(ref, map[string]string{})
	if empty.Status != models.AgentIdle || empty.Category != "performance" {
		t.Errorf("expired hash should read as idle, got %+v", empty)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := parseAgentStatus(ref, map[string]string{
		"status":         "active",
		"analyses_count": "4",
		"error_count":    "1",
		"confidence_sum": "2.6",
		"last_activity":  now.Format(time.RFC3339Nano),
	})
	if st.Status != models.AgentActive || st.AnalysesCount != 4 || st.ErrorCount != 1 {
		t.Errorf("unexpected status %+v", st)
	}
	if st.Accuracy < 0.649 || st.Accuracy > 0.651 {
		t.Errorf("expected accuracy 0.65, got %v", st.Accuracy)
	}
	if !st.LastActivity.Equal(now) {
		t.Errorf("expected %v, got %v", now, st.LastActivity)
	}
}

func TestMemoryRunLock(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryRunLock()

	release, ok, err := l.Acquire(ctx, "m1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.Acquire(ctx, "m1"); ok {
		t.Error("second acquire of a held match succeeded")
	}
	if _, ok, _ := l.Acquire(ctx, "m2"); !ok {
		t.Error("other match should not be blocked")
	}

	release()
	release()
	if _, ok, _ := l.Acquire(ctx, "m1"); !ok {
		t.Error("acquire after release failed")
	}
}

func TestSummariseForm(t *testing.T) {
	ref := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	results := []formResult{
		{At: ref.Add(-2 * day), Won: true},
		{At: ref.Add(-5 * day), Won: true},
		{At: ref.Add(-20 * day), Won: false},
		{At: ref.Add(-30 * day), Won: true},
	}
	f := summariseForm("p1", results, ref)
	if f.Played != 4 || f.Won != 3 {
		t.Errorf("unexpected totals %+v", f)
	}
	if f.Streak != 2 {
		t.Errorf("expected win streak 2, got %d", f.Streak)
	}
	if f.MatchesLast14 != 2 {
		t.Errorf("expected 2 matches in 14 days, got %d", f.MatchesLast14)
	}
	if !f.LastPlayed.Equal(ref.Add(-2 * day)) {
		t.Errorf("unexpected last played %v", f.LastPlayed)
	}

	losing := summariseForm("p1", []formResult{{At: ref, Won: false}, {At: ref.Add(-day), Won: false}, {At: ref.Add(-2 * day), Won: true}}, ref)
	if losing.Streak != -2 {
		t.Errorf("expected losing streak -2, got %d", losing.Streak)
	}

	if summariseForm("p1", nil, ref) != nil {
		t.Error("expected nil for empty history")
	}
}

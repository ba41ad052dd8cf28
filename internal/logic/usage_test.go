package logic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAgentUsage(t *testing.T) {
	conn := &MockConn{Rows: [][]interface{}{
		{"serve", uint64(10), uint64(1), float64(820), float64(0.71), uint64(5400), float64(0.2)},
		{"weather", uint64(4), uint64(4), float64(15), float64(0), uint64(0), float64(0)},
	}}
	since := time.Now().Add(-time.Hour)

	usage, err := NewUsageService(conn).AgentUsage(context.Background(), since)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(usage))
	}
	if usage[0].Agent != "serve" || usage[0].Runs != 10 || usage[0].TotalTokens != 5400 {
		t.Errorf("unexpected first row %+v", usage[0])
	}
	if usage[1].Errors != 4 {
		t.Errorf("expected 4 errors for weather, got %d", usage[1].Errors)
	}
	if len(conn.LastArgs) != 1 || conn.LastArgs[0] != since {
		t.Errorf("expected since as the only arg, got %v", conn.LastArgs)
	}
}

func TestAgentUsage_QueryError(t *testing.T) {
	conn := &MockConn{QueryErr: errors.New("connection refused")}
	if _, err := NewUsageService(conn).AgentUsage(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUsageBreakdown(t *testing.T) {
	conn := &MockConn{Rows: [][]interface{}{
		{"performance", float64(40)},
		{"matchup", float64(12)},
	}}
	svc := NewUsageService(conn)

	buckets, err := svc.Breakdown(context.Background(), UsageQuery{Dimension: "category", Agent: "serve"})
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 2 || buckets[0].Label != "performance" || buckets[0].Value != 40 {
		t.Errorf("unexpected buckets %+v", buckets)
	}
	if !strings.Contains(conn.LastQuery, "GROUP BY category") {
		t.Errorf("unexpected query %s", conn.LastQuery)
	}

	conn.LastQuery = ""
	if _, err := svc.Breakdown(context.Background(), UsageQuery{Dimension: "bogus"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if conn.LastQuery != "" {
		t.Error("invalid request must not reach ClickHouse")
	}
}

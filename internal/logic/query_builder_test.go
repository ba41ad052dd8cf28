package logic

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuildUsageQuery(t *testing.T) {
	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		req       UsageQuery
		wantQuery []string
		wantArgs  int
		wantErr   bool
	}{
		{
			name:      "Defaults",
			req:       UsageQuery{},
			wantQuery: []string{"SELECT toString(agent) AS label, toFloat64(count()) AS value", "GROUP BY agent", "LIMIT 100"},
		},
		{
			name: "Category tokens with filters",
			req: UsageQuery{
				Dimension: "category",
				Metric:    "tokens",
				Agent:     "serve",
				Since:     since,
				Limit:     5000,
			},
			wantQuery: []string{"toString(category)", "sum(prompt_tokens + completion_tokens)", "AND agent = ?", "AND timestamp >= ?", "LIMIT 100"},
			wantArgs:  2,
		},
		{
			name:      "Match advantage split",
			req:       UsageQuery{Dimension: "advantage", MatchID: "m1", Limit: 10},
			wantQuery: []string{"GROUP BY advantage", "AND match_id = ?", "LIMIT 10"},
			wantArgs:  1,
		},
		{
			name:    "Invalid dimension",
			req:     UsageQuery{Dimension: "prompt; DROP TABLE agent_events"},
			wantErr: true,
		},
		{
			name:    "Invalid metric",
			req:     UsageQuery{Metric: "sum(confidence)"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := BuildUsageQuery(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildUsageQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			for _, part := range tt.wantQuery {
				if !strings.Contains(got, part) {
					t.Errorf("query %q does not contain %q", got, part)
				}
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d: %v", tt.wantArgs, len(args), args)
			}
		})
	}
}

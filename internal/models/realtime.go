package models

// ClientFrame is a message sent by a websocket client
type ClientFrame struct {
	Type    string `json:"type"` // "subscribe", "unsubscribe", "ping"
	Channel string `json:"channel,omitempty"`
}

// ServerFrame is a message pushed to websocket clients
type ServerFrame struct {
	Type    string      `json:"type,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Realtime channels
const (
	ChannelAgents   = "agents"
	ChannelAnalysis = "analysis"
)

// MatchChannel is the per-match channel name
func MatchChannel(matchID string) string {
	return "match:" + matchID
}

// AnalysisEvent is broadcast when a run starts or finishes
type AnalysisEvent struct {
	Event      string      `json:"event"` // "analysis_started", "analysis_completed", "analysis_failed"
	MatchID    string      `json:"match_id"`
	RunID      string      `json:"run_id"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
}

const (
	EventAnalysisStarted   = "analysis_started"
	EventAnalysisCompleted = "analysis_completed"
	EventAnalysisFailed    = "analysis_failed"
)

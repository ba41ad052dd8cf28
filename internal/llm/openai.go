package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	completionCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtvision_completion_calls_total",
		Help: "Completion API calls by label and outcome",
	}, []string{"label", "outcome"})

	completionTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtvision_completion_tokens_total",
		Help: "Tokens consumed by the completion API",
	}, []string{"kind"})

	completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courtvision_completion_duration_seconds",
		Help:    "Latency of completion API calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	})
)

var tracer = otel.Tracer("github.com/courtvision/prediction-api/internal/llm")

// ClientConfig configures an OpenAI-compatible client.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	MaxTokens    int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Client implements Completer against an OpenAI-compatible
// /chat/completions endpoint (OpenAI, OpenRouter, local gateways).
type Client struct {
	apiKey       string
	apiBase      string
	defaultModel string
	maxTokens    int
	httpClient   *http.Client
	logger       *zap.SugaredLogger
}

// NewClient creates a new completion client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		apiKey:       cfg.APIKey,
		apiBase:      strings.TrimSuffix(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger.Sugar(),
	}
}

// DefaultModel returns the configured default model.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// Complete sends a single chat completion request.
func (c *Client) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.label", req.Label),
		attribute.Float64("llm.temperature", req.Temperature),
	)

	start := time.Now()
	resp, err := c.do(ctx, model, maxTokens, req)
	completionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		completionCalls.WithLabelValues(req.Label, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warnw("Completion call failed", "label", req.Label, "model", model, "error", err)
		return nil, err
	}

	completionCalls.WithLabelValues(req.Label, "ok").Inc()
	completionTokens.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
	completionTokens.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))
	span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	return resp, nil
}

func (c *Client) do(ctx context.Context, model string, maxTokens int, req *Request) (*Response, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.Format == FormatJSON {
		body.ResponseFormat = &responseFormat{Type: string(FormatJSON)}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response: %w", ErrEmptyCompletion)
	}
	choice := apiResp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	usedModel := apiResp.Model
	if usedModel == "" {
		usedModel = model
	}
	return &Response{
		Content:      choice.Message.Content,
		Model:        usedModel,
		FinishReason: choice.FinishReason,
		Usage:        apiResp.Usage,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// OpenAI API request/response types
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

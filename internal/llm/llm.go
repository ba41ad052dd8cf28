// Package llm wraps the external text-completion API.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the upstream call succeeds without content.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Completer is the single completion call the analysis pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ResponseFormat selects plain text or a JSON object reply.
type ResponseFormat string

const (
	FormatText ResponseFormat = ""
	FormatJSON ResponseFormat = "json_object"
)

// Request contains the parameters for a completion call.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
	Format      ResponseFormat
	// Label tags metrics and spans, e.g. the agent name.
	Label string
}

// Response contains the completion text and token usage.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req *Request) (*Response, error)

func (f CompleterFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

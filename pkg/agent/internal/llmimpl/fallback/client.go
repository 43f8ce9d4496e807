// Package fallback provides the offline model used when no backend is
// reachable. It echoes a fixed-length prefix of the prompt, so every run is
// reproducible.
package fallback

import (
	"context"

	"sitesmith/pkg/agent/llm"
)

const (
	// ModelName identifies the fallback in logs and metrics.
	ModelName = "offline-echo"
	// Prefix marks every fallback response.
	Prefix = "[offline] "
	// Suffix follows the truncated prompt.
	Suffix = "..."
	// DefaultEchoChars is the prefix length when none is configured.
	DefaultEchoChars = 100
)

// Client answers every request with Prefix + the first n runes of the
// flattened prompt + Suffix.
type Client struct {
	echoChars int
}

// New returns a fallback client echoing n runes (DefaultEchoChars if n <= 0).
func New(n int) *Client {
	if n <= 0 {
		n = DefaultEchoChars
	}
	return &Client{echoChars: n}
}

// Complete implements llm.LLMClient. It only fails when ctx is already done.
//
//nolint:gocritic // value request matches interface
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompletionResponse{}, err //nolint:wrapcheck // caller inspects ctx errors
	}
	return llm.CompletionResponse{
		Content:    Echo(llm.Flatten(in.Messages), c.echoChars),
		StopReason: "end_turn",
	}, nil
}

// GetModelName returns ModelName.
func (c *Client) GetModelName() string {
	return ModelName
}

// Echo truncates prompt to n runes and wraps it in Prefix and Suffix.
func Echo(prompt string, n int) string {
	runes := []rune(prompt)
	if len(runes) > n {
		runes = runes[:n]
	}
	return Prefix + string(runes) + Suffix
}

// Package llm defines the model-agnostic completion contract used by the workflow.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem carries instructions.
	RoleSystem CompletionRole = "system"
	// RoleUser carries the request text.
	RoleUser CompletionRole = "user"
	// RoleAssistant carries prior model output.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens bounds response length when a request leaves it unset.
	DefaultMaxTokens = 2048

	// TemperatureDefault keeps generation close to deterministic.
	TemperatureDefault = 0.1
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string
	StopReason string // provider-specific: "stop", "end_turn", "max_tokens", ...
}

// LLMClient is implemented by every model backend and middleware.
type LLMClient interface { //nolint:revive // established name
	// Complete generates a completion synchronously. It blocks until the backend
	// answers, the request deadline passes, or ctx is cancelled.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model identifier for this client.
	GetModelName() string
}

// Pinger is implemented by backends that can check reachability before first use.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewCompletionRequest creates a request with default limits.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}

// SplitSystem separates system messages from the conversation. Providers that take the
// system prompt out of band (Anthropic, Gemini) use it.
func SplitSystem(messages []CompletionMessage) (string, []CompletionMessage) {
	var system []string
	rest := make([]CompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// Flatten renders messages as "role: content" paragraphs, in order.
func Flatten(messages []CompletionMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

// Validate rejects requests no backend could serve.
func (r *CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("completion request has no messages")
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", r.MaxTokens)
	}
	if r.Temperature < 0.0 || r.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %v", r.Temperature)
	}
	return nil
}

// Package anthropic implements llm.LLMClient for Claude models.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
)

const providerName = "anthropic"

// Client wraps the Anthropic SDK client.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a client. An empty baseURL uses the SDK default.
func New(baseURL, apiKey, model string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}
}

// alternate merges consecutive same-role turns, since the Messages API
// requires strict user/assistant alternation starting with user.
func alternate(messages []llm.CompletionMessage) ([]llm.CompletionMessage, error) {
	merged := make([]llm.CompletionMessage, 0, len(messages))
	for _, m := range messages {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content += "\n\n" + m.Content
			continue
		}
		merged = append(merged, m)
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("no user or assistant messages")
	}
	if merged[0].Role != llm.RoleUser {
		return nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	return merged, nil
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // value request matches interface
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, rest := llm.SplitSystem(in.Messages)
	turns, err := alternate(rest)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message alternation error: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for i := range turns {
		block := anthropic.NewTextBlock(turns[i].Content)
		if turns[i].Role == llm.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt, Type: "text"}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Claude API")
	}

	var text strings.Builder
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			text.WriteString(resp.Content[i].AsText().Text)
		}
	}
	return llm.CompletionResponse{
		Content:    text.String(),
		StopReason: string(resp.StopReason),
	}, nil
}

// GetModelName returns the model name for this client.
func (c *Client) GetModelName() string {
	return string(c.model)
}

func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &llmerrors.Error{
			Err:        err,
			Type:       llmerrors.TypeForStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Message:    fmt.Sprintf("%s API returned status %d", providerName, apiErr.StatusCode),
		}
	}
	return llmerrors.Classify(err, providerName)
}

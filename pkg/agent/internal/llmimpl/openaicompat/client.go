// Package openaicompat talks to any server implementing the OpenAI chat
// completions protocol: vLLM, llama.cpp server, LM Studio or OpenAI itself.
package openaicompat

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
)

const providerName = "openai"

// Client implements llm.LLMClient over chat completions.
type Client struct {
	client openai.Client
	model  string
}

// New creates a client for model at baseURL. An empty baseURL uses the SDK
// default (api.openai.com). SDK-level retries are disabled.
func New(baseURL, apiKey, model string, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
	}
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // value request matches interface
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    convertMessages(in.Messages),
		Temperature: openai.Float(float64(in.Temperature)),
	}
	if in.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(in.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "chat completion returned no choices")
	}

	choice := resp.Choices[0]
	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
	}, nil
}

// Ping lists models, which every compatible server exposes cheaply.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// GetModelName returns the model name for this client.
func (c *Client) GetModelName() string {
	return c.model
}

func convertMessages(messages []llm.CompletionMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func classifyError(err error) error {
	var apiErr *openai.Error
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

// Package google implements llm.LLMClient for Gemini models.
package google

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
)

const providerName = "google"

// Client creates the genai client on first use because construction needs a
// context.
type Client struct {
	client  *genai.Client
	apiKey  string
	baseURL string
	model   string
	mu      sync.Mutex
}

// New creates a Gemini client. An empty baseURL uses the SDK default.
func New(baseURL, apiKey, model string) *Client {
	return &Client{apiKey: apiKey, baseURL: baseURL, model: model}
}

func (c *Client) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "failed to create Gemini client")
	}
	c.client = client
	return client, nil
}

// convertMessages splits out the system instruction and maps roles to
// Gemini's user/model.
func convertMessages(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	system, rest := llm.SplitSystem(messages)
	if len(rest) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}
	contents := make([]*genai.Content, 0, len(rest))
	for i := range rest {
		role := genai.RoleUser
		if rest[i].Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: rest[i].Content}},
		})
	}
	return contents, system, nil
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // value request matches interface
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	contents, system, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	client, err := c.ensureClient(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	temperature := in.Temperature
	//nolint:gosec // bounded by config validation
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(in.MaxTokens),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	text := result.Text()
	if text == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "Gemini returned no text")
	}
	return llm.CompletionResponse{Content: text, StopReason: stopReason(result)}, nil
}

// GetModelName returns the model name for this client.
func (c *Client) GetModelName() string {
	return c.model
}

func stopReason(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return "unknown"
	}
	switch reason := result.Candidates[0].FinishReason; reason {
	case genai.FinishReasonStop, "":
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	default:
		return strings.ToLower(string(reason))
	}
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if asAPIError(err, &apiErr) {
		return &llmerrors.Error{
			Err:        err,
			Type:       llmerrors.TypeForStatus(apiErr.Code),
			StatusCode: apiErr.Code,
			Message:    fmt.Sprintf("%s API returned status %d: %s", providerName, apiErr.Code, apiErr.Message),
		}
	}
	return llmerrors.Classify(err, providerName)
}

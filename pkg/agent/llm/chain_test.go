package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClient struct {
	content string
	calls   int
}

func (s *staticClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	s.calls++
	return CompletionResponse{Content: s.content}, nil
}

func (s *staticClient) GetModelName() string { return "static" }

func tagging(tag string, order *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*order = append(*order, tag)
				return next.Complete(ctx, req)
			},
			next.GetModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	base := &staticClient{content: "ok"}

	client := Chain(base, tagging("outer", &order), tagging("inner", &order))
	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, 1, base.calls)
	assert.Equal(t, "static", client.GetModelName())
}

func TestChainWithoutMiddleware(t *testing.T) {
	base := &staticClient{content: "ok"}
	assert.Same(t, LLMClient(base), Chain(base))
}

func TestShortCircuitMiddleware(t *testing.T) {
	base := &staticClient{}
	deny := func(next LLMClient) LLMClient {
		return WrapClient(
			func(context.Context, CompletionRequest) (CompletionResponse, error) {
				return CompletionResponse{}, errors.New("denied")
			},
			next.GetModelName,
		)
	}

	_, err := Chain(base, deny).Complete(context.Background(), CompletionRequest{})
	require.EqualError(t, err, "denied")
	assert.Zero(t, base.calls)
}

func TestSplitSystemAndFlatten(t *testing.T) {
	msgs := []CompletionMessage{
		NewSystemMessage("rules"),
		NewUserMessage("build a page"),
		NewAssistantMessage("done"),
	}

	system, rest := SplitSystem(msgs)
	assert.Equal(t, "rules", system)
	require.Len(t, rest, 2)
	assert.Equal(t, RoleUser, rest[0].Role)

	assert.Equal(t, "system: rules\n\nuser: build a page\n\nassistant: done", Flatten(msgs))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CompletionRequest
		wantErr bool
	}{
		{"defaults", NewCompletionRequest([]CompletionMessage{NewUserMessage("x")}), false},
		{"no messages", CompletionRequest{}, true},
		{"negative tokens", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}, MaxTokens: -1}, true},
		{"hot temperature", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}, Temperature: 2.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

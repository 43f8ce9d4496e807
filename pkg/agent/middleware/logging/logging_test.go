package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesmith/internal/mocks"
	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
	"sitesmith/pkg/logx"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logx.SetOutput(&buf)
	t.Cleanup(func() { logx.SetOutput(prev) })
	return &buf
}

func request() llm.CompletionRequest {
	return llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a planner."),
		llm.NewUserMessage("Build a bakery site"),
	})
}

func TestMiddlewareLogsPromptWhenDebugEnabled(t *testing.T) {
	buf := captureLogs(t)
	logx.SetDebug(true, "llm")
	t.Cleanup(func() { logx.SetDebug(false) })

	mock := mocks.NewMockLLMClient()
	mock.RespondWith("ok")
	client := llm.Chain(mock, Middleware(nil))

	ctx := llm.WithCallSite(context.Background(), "planner")
	_, err := client.Complete(ctx, request())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "planner request to mock-model")
	assert.Contains(t, out, "Build a bakery site")
	assert.Contains(t, out, "planner response in")
}

func TestMiddlewareQuietWhenDebugDisabled(t *testing.T) {
	buf := captureLogs(t)
	logx.SetDebug(false)

	mock := mocks.NewMockLLMClient()
	client := llm.Chain(mock, Middleware(nil))
	_, err := client.Complete(context.Background(), request())
	require.NoError(t, err)

	assert.Empty(t, buf.String())
}

func TestMiddlewareLogsEmptyResponse(t *testing.T) {
	buf := captureLogs(t)

	mock := mocks.NewMockLLMClient()
	mock.FailCompleteWith(llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no content"))
	client := llm.Chain(mock, Middleware(logx.NewLogger("test")))

	_, err := client.Complete(llm.WithCallSite(context.Background(), "router"), request())
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "Empty response from model during router")
	assert.Equal(t, 2, strings.Count(out, "Message ["))
}

func TestMiddlewarePassesErrorsThrough(t *testing.T) {
	captureLogs(t)
	sentinel := errors.New("backend down")

	mock := mocks.NewMockLLMClient()
	mock.FailCompleteWith(sentinel)
	client := llm.Chain(mock, Middleware(nil))

	_, err := client.Complete(context.Background(), request())
	assert.ErrorIs(t, err, sentinel)
}

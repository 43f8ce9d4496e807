package metrics

import (
	"context"
	"errors"
	"time"

	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
	"sitesmith/pkg/logx"
	"sitesmith/pkg/tokens"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor estimates token usage for a completed call.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with tiktoken since not every backend reports usage.
//
//nolint:gocritic // request passed by value to match the middleware signature
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	for i := range req.Messages {
		promptTokens += tokens.Count(req.Messages[i].Content)
	}
	return promptTokens, tokens.Count(resp.Content)
}

// Middleware records latency, outcome and token usage for every Complete call.
// A nil usageExtractor uses DefaultUsageExtractor; a nil logger disables the summary line.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				model := next.GetModelName()
				step := llm.CallSite(ctx)
				errorType := getErrorType(err)
				recorder.ObserveRequest(model, step, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("Model call: model=%s step=%s tokens=%d+%d status=%s duration=%dms",
						model, step, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			next.GetModelName,
		)
	}
}

// getErrorType labels errors for metrics.
func getErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return llmerrors.TypeOf(err).String()
	}
}

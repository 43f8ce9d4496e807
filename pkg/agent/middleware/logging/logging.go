// Package logging provides logging middleware for model clients.
package logging

import (
	"context"
	"time"

	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
	"sitesmith/pkg/logx"
)

// promptLogChars bounds how much of a prompt reaches debug logs.
const promptLogChars = 600

// Middleware logs each call at debug level under the "llm" domain and reports
// failures and empty responses at error level.
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				step := llm.CallSite(ctx)
				if logx.IsDebugEnabledForDomain("llm") {
					logx.Debug(ctx, "llm", "%s request to %s: %s",
						step, next.GetModelName(), llmerrors.SanitizePrompt(llm.Flatten(req.Messages), promptLogChars))
				}

				start := time.Now()
				resp, err := next.Complete(ctx, req)

				switch {
				case err == nil:
					logx.Debug(ctx, "llm", "%s response in %s (%d chars, stop=%s)",
						step, time.Since(start).Round(time.Millisecond), len(resp.Content), resp.StopReason)
				case llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse):
					logEmptyResponse(logger, step, req)
				default:
					logger.Error("%s model call failed after %s: %v", step, time.Since(start).Round(time.Millisecond), err)
				}

				return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			next.GetModelName,
		)
	}
}

//nolint:gocritic // request passed by value, only read here
func logEmptyResponse(logger *logx.Logger, step string, req llm.CompletionRequest) {
	logger.Error("Empty response from model during %s", step)
	for i := range req.Messages {
		msg := &req.Messages[i]
		logger.Error("Message [%d] Role: %s, Content: %s", i, msg.Role, llmerrors.SanitizePrompt(msg.Content, promptLogChars))
	}
	logger.Error("Temperature: %v, Max Tokens: %d", req.Temperature, req.MaxTokens)
}

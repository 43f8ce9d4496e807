// Package timeout bounds every model call with a deadline.
package timeout

import (
	"context"
	"time"

	"sitesmith/pkg/agent/llm"
)

// Middleware gives each Complete call its own deadline. The caller's context
// still applies, whichever ends first wins. A non-positive duration disables it.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		if duration <= 0 {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()
				return next.Complete(timeoutCtx, req)
			},
			next.GetModelName,
		)
	}
}

package llm

import "context"

type callSiteKey struct{}

// WithCallSite labels model calls made with ctx, e.g. "router" or "planner".
// Metrics and logging middleware read it back with CallSite.
func WithCallSite(ctx context.Context, site string) context.Context {
	return context.WithValue(ctx, callSiteKey{}, site)
}

// CallSite returns the label stored by WithCallSite, or "unknown".
func CallSite(ctx context.Context) string {
	if site, ok := ctx.Value(callSiteKey{}).(string); ok && site != "" {
		return site
	}
	return "unknown"
}

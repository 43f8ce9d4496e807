// Package metrics records model call latency, outcomes and token usage.
package metrics

import "time"

// Recorder defines the interface for recording model call metrics.
type Recorder interface {
	// ObserveRequest records a completed model call. step is the workflow
	// call site ("router", "planner") taken from the request context.
	ObserveRequest(
		model, step string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a recorder that discards everything.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

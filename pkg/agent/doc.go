// Package agent builds the model client used by the workflow.
//
// NewClient picks a backend from config, probes it once, and substitutes the
// offline echo client when the backend cannot be reached. The result is wrapped
// in the logging, metrics and timeout middleware:
//
//	logging -> metrics -> timeout -> provider client
//
// Provider implementations live under internal/llmimpl and are not importable
// outside this package tree.
package agent

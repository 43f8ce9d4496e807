// Package workflow runs the router, planner and code agent cycle that turns a
// user request into saved website code.
//
// The graph has one cycle:
//
//	router --plan--> planner --> code_agent --> router --end--> terminal
//
// The code agent always sets NextAction to end together with CodeUpdated, and
// the router short-circuits on that pair without calling the model, so a run
// performs at most one plan-and-save cycle whatever the model replies.
// Sessions serializes runs per session key and commits results atomically.
package workflow

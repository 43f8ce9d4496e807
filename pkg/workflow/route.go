package workflow

import "fmt"

// Node is a vertex of the workflow graph.
type Node string

const (
	NodeRouter    Node = "router"
	NodePlanner   Node = "planner"
	NodeCodeAgent Node = "code_agent"
	NodeTerminal  Node = "terminal"
)

// Route maps the router's decision to the next node.
//
// ActionExecuteTools leads to the code agent. KeywordClassifier never emits
// it, so that edge is only reachable with a custom classifier.
func Route(action Action) (Node, error) {
	switch action {
	case ActionPlan:
		return NodePlanner, nil
	case ActionExecuteTools:
		return NodeCodeAgent, nil
	case ActionEnd, ActionUnset:
		return NodeTerminal, nil
	default:
		return "", fmt.Errorf("%w: unrecognized next action %q", ErrInvalidState, action)
	}
}

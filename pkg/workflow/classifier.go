package workflow

import "strings"

// DecisionClassifier turns the router's free-form reply into an Action.
type DecisionClassifier interface {
	ClassifyDecision(text string) Action
}

// DefaultKeywords make the router plan when any of them appears in the reply.
//
//nolint:gochecknoglobals // read-only defaults
var DefaultKeywords = []string{"plan", "refine"}

// KeywordClassifier returns ActionPlan when the reply contains any keyword,
// case-insensitively, and ActionEnd otherwise.
type KeywordClassifier struct {
	Keywords []string // nil uses DefaultKeywords
}

// ClassifyDecision implements DecisionClassifier.
func (k KeywordClassifier) ClassifyDecision(text string) Action {
	keywords := k.Keywords
	if keywords == nil {
		keywords = DefaultKeywords
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return ActionPlan
		}
	}
	return ActionEnd
}

package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Origin tags who produced a turn.
type Origin string

const (
	OriginUser  Origin = "user"
	OriginAgent Origin = "agent"
)

// Action is the router's decision, consumed by Route.
type Action string

const (
	ActionUnset        Action = ""
	ActionPlan         Action = "plan"
	ActionExecuteTools Action = "execute_tools"
	ActionEnd          Action = "end"

	// ActionParseCode is set by the planner and consumed by the unconditional
	// planner-to-code-agent edge. It never reaches Route.
	ActionParseCode Action = "parse_code"
)

// Turn is one entry in the conversation history.
type Turn struct {
	ID        string    `json:"id"`
	Origin    Origin    `json:"origin"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the record threaded through a workflow run.
//
// History is append-only. CodeUpdated is true only between a successful save
// and the next router evaluation.
type State struct {
	SessionID     string `json:"session_id"`
	History       []Turn `json:"history"`
	UserRequest   string `json:"user_request"`
	WebsiteMarkup string `json:"website_markup"`
	CodeUpdated   bool   `json:"code_updated"`
	NextAction    Action `json:"next_action"`
	LastError     string `json:"last_error,omitempty"`
}

// NewState returns an empty state for sessionID.
func NewState(sessionID string) State {
	return State{SessionID: sessionID, History: []Turn{}}
}

// Clone returns a deep copy.
func (s *State) Clone() State {
	c := *s
	c.History = make([]Turn, len(s.History))
	copy(c.History, s.History)
	return c
}

// AppendTurn adds a turn and returns it.
func (s *State) AppendTurn(origin Origin, content string) Turn {
	t := Turn{
		ID:        uuid.NewString(),
		Origin:    origin,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	s.History = append(s.History, t)
	return t
}

// LatestTurn returns the most recent turn.
func (s *State) LatestTurn() (Turn, bool) {
	if len(s.History) == 0 {
		return Turn{}, false
	}
	return s.History[len(s.History)-1], true
}

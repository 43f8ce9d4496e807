package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sitesmith/pkg/logx"
)

// Runner executes one workflow run. *Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, in State) (State, error)
}

// session admits one run at a time through sem. state is guarded by mu so
// Snapshot never waits for a run.
type session struct {
	sem   chan struct{}
	mu    sync.RWMutex
	state State
}

// Sessions holds the state of every session key and serializes runs per key.
type Sessions struct {
	runner   Runner
	logger   *logx.Logger
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates an empty registry running submissions through runner.
func NewSessions(runner Runner) *Sessions {
	return &Sessions{
		runner:   runner,
		logger:   logx.NewLogger("sessions"),
		sessions: make(map[string]*session),
	}
}

func (s *Sessions) get(key string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{
			sem:   make(chan struct{}, 1),
			state: NewState(uuid.NewString()),
		}
		s.sessions[key] = sess
	}
	return sess
}

// Submit queues behind any run in flight for key, then appends request as a
// user turn and runs the workflow. The result is committed unless the run was
// cancelled, in which case the session is left exactly as it was.
func (s *Sessions) Submit(ctx context.Context, key, request string) (State, error) {
	if strings.TrimSpace(request) == "" {
		return State{}, ErrEmptyRequest
	}
	sess := s.get(key)
	select {
	case sess.sem <- struct{}{}:
	case <-ctx.Done():
		return s.Snapshot(key), fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	defer func() { <-sess.sem }()
	return s.run(ctx, key, sess, request)
}

// TrySubmit is Submit without queueing: it fails with ErrSessionBusy while
// another run holds key.
func (s *Sessions) TrySubmit(ctx context.Context, key, request string) (State, error) {
	if strings.TrimSpace(request) == "" {
		return State{}, ErrEmptyRequest
	}
	sess := s.get(key)
	select {
	case sess.sem <- struct{}{}:
	default:
		return s.Snapshot(key), ErrSessionBusy
	}
	defer func() { <-sess.sem }()
	return s.run(ctx, key, sess, request)
}

func (s *Sessions) run(ctx context.Context, key string, sess *session, request string) (State, error) {
	sess.mu.RLock()
	working := sess.state.Clone()
	sess.mu.RUnlock()

	working.UserRequest = request
	working.CodeUpdated = false
	working.AppendTurn(OriginUser, request)

	s.logger.Info("Session %s: running request (%d chars)", key, len(request))
	result, err := s.runner.Run(ctx, working)
	if errors.Is(err, ErrCancelled) {
		s.logger.Warn("Session %s: run cancelled, state unchanged", key)
		return s.Snapshot(key), err
	}

	sess.mu.Lock()
	sess.state = result.Clone()
	sess.mu.Unlock()

	if err != nil {
		s.logger.Error("Session %s: run failed: %v", key, err)
	}
	return result, err
}

// Snapshot returns a copy of the state for key. Unknown keys get a fresh,
// empty state and are not registered.
func (s *Sessions) Snapshot(key string) State {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return NewState("")
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.state.Clone()
}

// Keys lists the known session keys in sorted order.
func (s *Sessions) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/codeblock"
	"sitesmith/pkg/logx"
	"sitesmith/pkg/templates"
)

// DefaultMaxSteps bounds node executions per run. A complete cycle takes
// three (router, planner, code agent) plus the final router visit.
const DefaultMaxSteps = 8

// ArtifactStore is the part of sandbox.Store the workflow needs.
type ArtifactStore interface {
	Save(markup, style, script string) (string, error)
	RenderForPrompt() (string, error)
}

// Orchestrator executes the workflow graph over a State.
type Orchestrator struct {
	client      llm.LLMClient
	store       ArtifactStore
	classifier  DecisionClassifier
	prompts     *templates.Renderer
	metrics     *Metrics
	logger      *logx.Logger
	maxSteps    int
	maxTokens   int
	temperature float32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier replaces the keyword classifier used by the router.
func WithClassifier(c DecisionClassifier) Option {
	return func(o *Orchestrator) { o.classifier = c }
}

// WithMetrics records step and run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger replaces the default "workflow" logger.
func WithLogger(l *logx.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) { o.maxSteps = n }
}

// WithRequestLimits sets the output cap and temperature of every model call.
func WithRequestLimits(maxTokens int, temperature float64) Option {
	return func(o *Orchestrator) {
		o.maxTokens = maxTokens
		o.temperature = float32(temperature)
	}
}

// NewOrchestrator creates an orchestrator calling client and saving to store.
func NewOrchestrator(client llm.LLMClient, store ArtifactStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		store:       store,
		classifier:  KeywordClassifier{},
		prompts:     templates.MustNewRenderer(),
		logger:      logx.NewLogger("workflow"),
		maxSteps:    DefaultMaxSteps,
		maxTokens:   llm.DefaultMaxTokens,
		temperature: llm.TemperatureDefault,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// modelCallError marks a failed model call so Run can tell it apart from
// store and routing failures.
type modelCallError struct {
	step Node
	err  error
}

func (e *modelCallError) Error() string {
	return fmt.Sprintf("%s model call failed: %v", e.step, e.err)
}

func (e *modelCallError) Unwrap() error { return e.err }

// Run executes the graph from the router on a copy of in and returns the
// resulting state.
//
// A failed model call is recorded as an agent turn and ends the run with a nil
// error. Save failures and invalid states are recorded the same way but also
// returned. If ctx ends, in is returned unchanged with an error wrapping
// ErrCancelled.
//
//nolint:gocritic // State is passed by value so the caller's copy is never touched
func (o *Orchestrator) Run(ctx context.Context, in State) (State, error) {
	ctx = logx.WithComponent(ctx, "workflow")
	st := in.Clone()
	st.LastError = ""

	node := NodeRouter
	for steps := 0; node != NodeTerminal; steps++ {
		if steps >= o.maxSteps {
			err := fmt.Errorf("%w: exceeded %d steps at %s", ErrInvalidState, o.maxSteps, node)
			return o.fail(&st, outcomeInvalid, err), err
		}
		if err := ctx.Err(); err != nil {
			o.metrics.observeRun(outcomeCancelled)
			return in, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		logx.DebugFlow(ctx, "workflow", string(node), "enter")
		start := time.Now()
		next, err := o.step(ctx, node, &st)
		o.metrics.observeStep(node, time.Since(start))

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				o.metrics.observeRun(outcomeCancelled)
				return in, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
			}
			var mce *modelCallError
			if errors.As(err, &mce) {
				return o.fail(&st, outcomeModelFailed, err), nil
			}
			if errors.Is(err, ErrInvalidState) {
				return o.fail(&st, outcomeInvalid, err), err
			}
			return o.fail(&st, outcomeSaveFailed, err), err
		}
		logx.DebugFlow(ctx, "workflow", string(node), "-> "+string(next))
		node = next
	}

	o.metrics.observeRun(outcomeCompleted)
	return st, nil
}

func (o *Orchestrator) step(ctx context.Context, node Node, st *State) (Node, error) {
	switch node {
	case NodeRouter:
		if err := o.router(ctx, st); err != nil {
			return "", err
		}
		return Route(st.NextAction)
	case NodePlanner:
		if err := o.planner(ctx, st); err != nil {
			return "", err
		}
		return NodeCodeAgent, nil
	case NodeCodeAgent:
		if err := o.codeAgent(st); err != nil {
			return "", err
		}
		return NodeRouter, nil
	default:
		return "", fmt.Errorf("%w: unknown node %q", ErrInvalidState, node)
	}
}

// fail records err as an agent turn and forces termination.
func (o *Orchestrator) fail(st *State, outcome string, err error) State {
	o.logger.Error("Workflow run failed: %v", err)
	st.AppendTurn(OriginAgent, ErrorTurnPrefix+err.Error())
	st.NextAction = ActionEnd
	st.CodeUpdated = false
	st.LastError = err.Error()
	o.metrics.observeRun(outcome)
	return *st
}

// router decides whether to enter the plan cycle. CodeUpdated is always
// consumed here.
func (o *Orchestrator) router(ctx context.Context, st *State) error {
	if st.NextAction == ActionEnd && st.CodeUpdated {
		st.CodeUpdated = false
		return nil
	}
	st.CodeUpdated = false

	latest, _ := st.LatestTurn()
	data := &templates.TemplateData{UserRequest: st.UserRequest, LatestMessage: latest.Content}
	messages, err := o.render(data, routerPrompt)
	if err != nil {
		return err
	}

	reply, err := o.complete(ctx, NodeRouter, messages)
	if err != nil {
		return err
	}
	st.NextAction = o.classifier.ClassifyDecision(reply)
	o.logger.Info("Router decided %q", st.NextAction)
	return nil
}

// planner asks the model for new code given the current files.
func (o *Orchestrator) planner(ctx context.Context, st *State) error {
	current, err := o.store.RenderForPrompt()
	if err != nil {
		return fmt.Errorf("failed to read current website code: %w", err)
	}

	data := &templates.TemplateData{UserRequest: st.UserRequest, CurrentCode: current}
	messages, err := o.render(data, plannerPrompt)
	if err != nil {
		return err
	}

	reply, err := o.complete(ctx, NodePlanner, messages)
	if err != nil {
		return err
	}
	st.AppendTurn(OriginAgent, reply)
	st.NextAction = ActionParseCode
	return nil
}

// codeAgent extracts the blocks from the latest turn and saves them.
func (o *Orchestrator) codeAgent(st *State) error {
	latest, _ := st.LatestTurn()
	triple := codeblock.Extract(latest.Content)

	confirmation, err := o.store.Save(triple.Markup, triple.Style, triple.Script)
	if err != nil {
		return fmt.Errorf("failed to save website code: %w", err)
	}

	st.AppendTurn(OriginAgent, confirmation)
	st.WebsiteMarkup = triple.Markup
	st.CodeUpdated = true
	st.NextAction = ActionEnd
	o.metrics.observeSave()
	return nil
}

// promptPart is one message of a step's prompt.
type promptPart struct {
	role     llm.CompletionRole
	template templates.StateTemplate
}

//nolint:gochecknoglobals // fixed prompt layouts
var (
	routerPrompt = []promptPart{
		{llm.RoleSystem, templates.RouterSystemTemplate},
		{llm.RoleUser, templates.RouterRequestTemplate},
		{llm.RoleUser, templates.RouterDecideTemplate},
	}
	plannerPrompt = []promptPart{
		{llm.RoleSystem, templates.PlannerSystemTemplate},
		{llm.RoleUser, templates.PlannerRequestTemplate},
	}
)

func (o *Orchestrator) render(data *templates.TemplateData, parts []promptPart) ([]llm.CompletionMessage, error) {
	messages := make([]llm.CompletionMessage, 0, len(parts))
	for _, p := range parts {
		content, err := o.prompts.Render(p.template, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		messages = append(messages, llm.CompletionMessage{Role: p.role, Content: content})
	}
	return messages, nil
}

func (o *Orchestrator) complete(ctx context.Context, step Node, messages []llm.CompletionMessage) (string, error) {
	req := llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}
	resp, err := o.client.Complete(llm.WithCallSite(ctx, string(step)), req)
	if err != nil {
		return "", &modelCallError{step: step, err: err}
	}
	return resp.Content, nil
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesmith/internal/mocks"
	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/codeblock"
	"sitesmith/pkg/sandbox"
)

const plannerReply = "Here you go:\n```html\n<h1>Bakery</h1>\n```\n```css\nh1 { color: brown; }\n```\n```javascript\nconsole.log('hi');\n```"

// stepMock answers "plan" to the router and plannerReply to the planner.
func stepMock() *mocks.MockLLMClient {
	mock := mocks.NewMockLLMClient()
	mock.OnComplete(func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		if llm.CallSite(ctx) == string(NodePlanner) {
			return llm.CompletionResponse{Content: plannerReply}, nil
		}
		return llm.CompletionResponse{Content: "plan"}, nil
	})
	return mock
}

func submitted(request string) State {
	st := NewState("test")
	st.UserRequest = request
	st.AppendTurn(OriginUser, request)
	return st
}

type fixedClassifier Action

func (f fixedClassifier) ClassifyDecision(string) Action { return Action(f) }

func TestRouterShortCircuitMakesNoModelCall(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	o := NewOrchestrator(mock, sandbox.NewStore(t.TempDir()))

	in := submitted("make it blue")
	in.NextAction = ActionEnd
	in.CodeUpdated = true

	out, err := o.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 0, mock.GetCompleteCallCount())
	assert.Equal(t, ActionEnd, out.NextAction)
	assert.False(t, out.CodeUpdated)
	assert.Len(t, out.History, 1)
}

func TestRunPerformsAtMostOneCycle(t *testing.T) {
	// The model asks to plan every time; the short-circuit must still stop the loop.
	mock := mocks.NewMockLLMClient()
	mock.RespondWith("plan, then refine, then plan again")
	o := NewOrchestrator(mock, sandbox.NewStore(t.TempDir()))

	out, err := o.Run(context.Background(), submitted("landing page"))
	require.NoError(t, err)

	if got := mock.GetCompleteCallCount(); got != 2 {
		t.Errorf("Expected 2 model calls (router + planner), got %d", got)
	}
	assert.Len(t, out.History, 3)
	assert.Equal(t, ActionEnd, out.NextAction)
	assert.False(t, out.CodeUpdated)
	assert.Empty(t, out.LastError)
}

func TestRunSavesExtractedCode(t *testing.T) {
	root := t.TempDir()
	mock := stepMock()
	o := NewOrchestrator(mock, sandbox.NewStore(root))

	out, err := o.Run(context.Background(), submitted("bakery site"))
	require.NoError(t, err)

	require.Len(t, out.History, 3)
	assert.Equal(t, plannerReply, out.History[1].Content)
	assert.Equal(t, OriginAgent, out.History[1].Origin)
	assert.Equal(t, sandbox.SavedMessage, out.History[2].Content)
	assert.Equal(t, "<h1>Bakery</h1>", out.WebsiteMarkup)

	style, err := os.ReadFile(filepath.Join(root, sandbox.StyleFile))
	require.NoError(t, err)
	assert.Equal(t, "h1 { color: brown; }", string(style))

	page, err := os.ReadFile(filepath.Join(root, sandbox.MarkupFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Bakery</h1>")
}

func TestPlannerSeesCurrentCode(t *testing.T) {
	store := sandbox.NewStore(t.TempDir())
	mock := stepMock()
	o := NewOrchestrator(mock, store)

	_, err := o.Run(context.Background(), submitted("first"))
	require.NoError(t, err)
	assert.True(t, mock.AssertCompleteCalledWith(sandbox.NoCodeSentinel))

	mock.Reset()
	_, err = o.Run(context.Background(), submitted("second"))
	require.NoError(t, err)

	planner := mock.LastCompleteCall()
	require.NotNil(t, planner)
	assert.Contains(t, planner.Messages[0].Content, "<h1>Bakery</h1>")
	assert.Contains(t, planner.Messages[1].Content, "User Request: second")
}

func TestRouterEndsWithoutPlanning(t *testing.T) {
	root := t.TempDir()
	mock := mocks.NewMockLLMClient()
	mock.RespondWith("END - the task is complete")
	o := NewOrchestrator(mock, sandbox.NewStore(root))

	out, err := o.Run(context.Background(), submitted("thanks"))
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetCompleteCallCount())
	assert.Equal(t, ActionEnd, out.NextAction)
	assert.Len(t, out.History, 1)
	_, statErr := os.Stat(filepath.Join(root, sandbox.MarkupFile))
	assert.True(t, os.IsNotExist(statErr), "router end must not write files")
}

func TestRouterPromptCarriesRequestAndLatestTurn(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	mock.RespondWith("end")
	o := NewOrchestrator(mock, sandbox.NewStore(t.TempDir()), WithRequestLimits(512, 0.3))

	_, err := o.Run(context.Background(), submitted("a portfolio"))
	require.NoError(t, err)

	req := mock.LastCompleteCall()
	require.NotNil(t, req)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "User request: a portfolio\nLatest action/message: a portfolio", req.Messages[1].Content)
	assert.Equal(t, 512, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 0.0001)
}

func TestExecuteToolsEdgeReachesCodeAgent(t *testing.T) {
	root := t.TempDir()
	mock := mocks.NewMockLLMClient()
	o := NewOrchestrator(mock, sandbox.NewStore(root), WithClassifier(fixedClassifier(ActionExecuteTools)))

	out, err := o.Run(context.Background(), submitted("```html\n<p>direct</p>\n```"))
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetCompleteCallCount())
	assert.Equal(t, "<p>direct</p>", out.WebsiteMarkup)
	assert.Equal(t, sandbox.SavedMessage, out.History[len(out.History)-1].Content)
	assert.False(t, out.CodeUpdated)
}

func TestUnknownActionIsInvalidState(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	o := NewOrchestrator(mock, sandbox.NewStore(t.TempDir()), WithClassifier(fixedClassifier("dance")))

	out, err := o.Run(context.Background(), submitted("anything"))
	require.ErrorIs(t, err, ErrInvalidState)

	last, _ := out.LatestTurn()
	assert.True(t, strings.HasPrefix(last.Content, ErrorTurnPrefix))
	assert.Equal(t, ActionEnd, out.NextAction)
	assert.NotEmpty(t, out.LastError)
}

func TestModelFailureIsRecordedNotReturned(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	mock.FailCompleteWith(errors.New("backend timed out"))
	o := NewOrchestrator(mock, sandbox.NewStore(t.TempDir()))

	out, err := o.Run(context.Background(), submitted("hello"))
	require.NoError(t, err)

	require.Len(t, out.History, 2)
	assert.Equal(t, OriginAgent, out.History[1].Origin)
	assert.Contains(t, out.History[1].Content, "router model call failed: backend timed out")
	assert.Equal(t, ActionEnd, out.NextAction)
	assert.False(t, out.CodeUpdated)
	assert.Contains(t, out.LastError, "backend timed out")
}

func TestPlannerFailureEndsRun(t *testing.T) {
	root := t.TempDir()
	mock := mocks.NewMockLLMClient()
	mock.OnComplete(func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		if llm.CallSite(ctx) == string(NodePlanner) {
			return llm.CompletionResponse{}, errors.New("malformed response")
		}
		return llm.CompletionResponse{Content: "plan"}, nil
	})
	o := NewOrchestrator(mock, sandbox.NewStore(root))

	out, err := o.Run(context.Background(), submitted("hello"))
	require.NoError(t, err)

	assert.Equal(t, 2, mock.GetCompleteCallCount())
	assert.Len(t, out.History, 2)
	assert.Contains(t, out.LastError, "planner model call failed")
	_, statErr := os.Stat(filepath.Join(root, sandbox.MarkupFile))
	assert.True(t, os.IsNotExist(statErr))
}

type failingStore struct{}

func (failingStore) Save(_, _, _ string) (string, error) {
	return "", fmt.Errorf("%w: disk full", sandbox.ErrPersistence)
}

func (failingStore) RenderForPrompt() (string, error) {
	return sandbox.NoCodeSentinel, nil
}

func TestPersistenceFailurePropagates(t *testing.T) {
	mock := stepMock()
	o := NewOrchestrator(mock, failingStore{})
	out, err := o.Run(context.Background(), submitted("site"))

	require.ErrorIs(t, err, sandbox.ErrPersistence)
	assert.False(t, out.CodeUpdated)
	assert.Equal(t, ActionEnd, out.NextAction)
	last, _ := out.LatestTurn()
	assert.True(t, strings.HasPrefix(last.Content, ErrorTurnPrefix))
	assert.Empty(t, out.WebsiteMarkup)
	assert.Contains(t, last.Content, "disk full")
	assert.Equal(t, 2, mock.GetCompleteCallCount())
}

func TestUnreadableSandboxFailsPlanner(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	mock := stepMock()
	o := NewOrchestrator(mock, sandbox.NewStore(blocker))
	out, err := o.Run(context.Background(), submitted("site"))

	require.ErrorIs(t, err, sandbox.ErrPersistence)
	assert.Equal(t, 1, mock.GetCompleteCallCount())
	assert.False(t, out.CodeUpdated)
}

func TestStepCeilingIsEnforced(t *testing.T) {
	o := NewOrchestrator(stepMock(), sandbox.NewStore(t.TempDir()), WithMaxSteps(2))

	_, err := o.Run(context.Background(), submitted("site"))
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "exceeded 2 steps")
}

func TestCancellationLeavesStateUntouched(t *testing.T) {
	var entered atomic.Bool
	mock := mocks.NewMockLLMClient()
	mock.OnComplete(func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		entered.Store(true)
		<-ctx.Done()
		return llm.CompletionResponse{}, ctx.Err()
	})
	o := NewOrchestrator(mock, sandbox.NewStore(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for !entered.Load() {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	in := submitted("site")
	out, err := o.Run(ctx, in)

	require.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, in, out)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	o := NewOrchestrator(stepMock(), sandbox.NewStore(t.TempDir()))
	in := submitted("site")

	_, err := o.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, in.History, 1)
}

func TestEmptyPlannerReplyUsesPlaceholders(t *testing.T) {
	root := t.TempDir()
	mock := mocks.NewMockLLMClient()
	mock.RespondWith("plan: I have no code for you")
	o := NewOrchestrator(mock, sandbox.NewStore(root))

	out, err := o.Run(context.Background(), submitted("site"))
	require.NoError(t, err)
	assert.Empty(t, out.WebsiteMarkup)

	style, err := os.ReadFile(filepath.Join(root, sandbox.StyleFile))
	require.NoError(t, err)
	assert.Equal(t, codeblock.StylePlaceholder, string(style))
	script, err := os.ReadFile(filepath.Join(root, sandbox.ScriptFile))
	require.NoError(t, err)
	assert.Equal(t, codeblock.ScriptPlaceholder, string(script))
}

func TestMetricsRecordRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewOrchestrator(stepMock(), sandbox.NewStore(t.TempDir()), WithMetrics(NewMetrics(reg)))

	_, err := o.Run(context.Background(), submitted("site"))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["workflow_runs_total"])
	assert.True(t, names["workflow_steps_total"])
	assert.True(t, names["workflow_code_saves_total"])
}

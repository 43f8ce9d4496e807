package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sitesmith/internal/mocks"
	"sitesmith/pkg/sandbox"
	"sitesmith/pkg/workflow"
)

const plannerReply = "```html\n<h1>Bakery</h1>\n```\n```css\nh1 { color: brown; }\n```"

func newTestServer(t *testing.T, opts Options) (*Server, *mocks.MockLLMClient, *sandbox.Store) {
	t.Helper()
	client := mocks.NewMockLLMClient()
	client.RespondWithSequence("plan", plannerReply)
	store := sandbox.NewStore(t.TempDir())
	sessions := workflow.NewSessions(workflow.NewOrchestrator(client, store))
	return NewServer(sessions, store, opts), client, store
}

func postPrompt(handler http.Handler, prompt string) *httptest.ResponseRecorder {
	form := url.Values{"user_prompt": {prompt}}
	req := httptest.NewRequest(http.MethodPost, "/process_request", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHandleIndexEmptyHistory(t *testing.T) {
	server, _, _ := newTestServer(t, Options{Model: ModelStatus{Model: "Qwen/Qwen3-14B"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	server.handleIndex(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	assert.Contains(t, body, `name="user_prompt"`)
	assert.Contains(t, body, `src="/sandbox/index.html?t=`)
	assert.Contains(t, body, "Qwen/Qwen3-14B")
	assert.NotContains(t, body, "(offline)")
}

func TestHandleIndexUnknownPath(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	server.handleIndex(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestProcessRequestRunsWorkflowAndRedirects(t *testing.T) {
	server, client, store := newTestServer(t, Options{})
	handler := server.Handler()

	w := postPrompt(handler, "A bakery landing page")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", w.Code)
	}
	assert.Equal(t, "/", w.Header().Get("Location"))
	// Router, planner; the second router pass short-circuits.
	assert.Equal(t, 2, client.GetCompleteCallCount())

	page, err := store.Open(sandbox.MarkupFile)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Bakery</h1>")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	body := rec.Body.String()
	assert.Contains(t, body, "A bakery landing page")
	assert.Contains(t, body, sandbox.SavedMessage)
}

func TestProcessRequestEmptyPrompt(t *testing.T) {
	server, client, _ := newTestServer(t, Options{})

	w := postPrompt(server.Handler(), "  ")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	assert.Equal(t, 0, client.GetCompleteCallCount())
}

func TestProcessRequestMethodNotAllowed(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/process_request", nil)
	w := httptest.NewRecorder()
	server.handleProcessRequest(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestProcessRequestModelFailureShowsErrorTurn(t *testing.T) {
	server, client, _ := newTestServer(t, Options{})
	client.FailCompleteWith(assert.AnError)
	handler := server.Handler()

	w := postPrompt(handler, "A bakery landing page")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `class="turn error"`)
}

func TestHandleSandboxServesFiles(t *testing.T) {
	server, _, store := newTestServer(t, Options{})
	_, err := store.Save("<p>hi</p>", "p { margin: 0; }", "")
	require.NoError(t, err)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/sandbox/index.html", "text/html; charset=utf-8", "<p>hi</p>"},
		{"/sandbox/style.css", "text/css; charset=utf-8", "margin: 0"},
		{"/sandbox/script.js", "application/javascript; charset=utf-8", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			server.handleSandbox(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestHandleSandboxNotFound(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})

	for _, path := range []string{"/sandbox/index.html", "/sandbox/../../etc/passwd", "/sandbox/missing.css"} {
		req := httptest.NewRequest(http.MethodGet, "/sandbox/x", nil)
		req.URL.Path = path
		w := httptest.NewRecorder()
		server.handleSandbox(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 for %s, got %d", path, w.Code)
		}
		assert.Equal(t, notFoundPage, w.Body.String())
	}
}

func TestHandleStateReturnsSnapshot(t *testing.T) {
	server, _, _ := newTestServer(t, Options{SessionKey: "alpha"})
	postPrompt(server.Handler(), "A bakery landing page")

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	w := httptest.NewRecorder()
	server.handleState(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var st workflow.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.NotEmpty(t, st.SessionID)
	assert.Len(t, st.History, 3)
	assert.Contains(t, st.WebsiteMarkup, "<h1>Bakery</h1>")
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := newTestServer(t, Options{Model: ModelStatus{Provider: "offline", Model: "offline", Offline: true, Reason: "configured"}})

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Status string      `json:"status"`
		Model  ModelStatus `json:"model"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Model.Offline)
	assert.Equal(t, "configured", resp.Model.Reason)
}

func TestHandleLogsRejectsBadSince(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/logs?since=yesterday", nil)
	w := httptest.NewRecorder()
	server.handleLogs(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleLogsReturnsEntries(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})
	server.logger.Info("webui test marker")

	req := httptest.NewRequest(http.MethodGet, "/api/logs?domain=webui", nil)
	w := httptest.NewRecorder()
	server.handleLogs(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	assert.Contains(t, w.Body.String(), "webui test marker")
}

func TestRequireAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	server, _, _ := newTestServer(t, Options{Username: "admin", PasswordHash: string(hash)})
	handler := server.Handler()

	tests := []struct {
		name     string
		user     string
		pass     string
		withAuth bool
		want     int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "root", "secret", true, http.StatusUnauthorized},
		{"valid", "admin", "secret", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
			if tt.withAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}

	// Health stays open for probes.
	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "webui_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	server, _, _ := newTestServer(t, Options{Gatherer: reg})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	assert.Contains(t, w.Body.String(), "webui_test_total 1")
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStartServerServesAndShutsDown(t *testing.T) {
	server, _, _ := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := server.StartServer(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/api/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

// Package webui serves the chat page, the generated website and a small JSON API.
package webui

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"sitesmith/pkg/logx"
	"sitesmith/pkg/sandbox"
	"sitesmith/pkg/version"
	"sitesmith/pkg/workflow"
)

//go:embed web/templates/*.html
var templateFS embed.FS

// notFoundPage is the sandbox 404 body.
const notFoundPage = "<h1>404 Not Found in Sandbox</h1>"

// maxPromptBytes bounds the process_request form body.
const maxPromptBytes = 64 << 10

// ModelStatus describes the model client for the page header and health check.
type ModelStatus struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Offline  bool   `json:"offline"`
	Reason   string `json:"reason,omitempty"`
}

// Options configures a Server. Empty PasswordHash disables authentication.
type Options struct {
	SessionKey   string
	Username     string
	PasswordHash string
	Model        ModelStatus
	Gatherer     prometheus.Gatherer // nil disables /metrics
}

// Server represents the web UI HTTP server.
type Server struct {
	sessions  *workflow.Sessions
	store     *sandbox.Store
	opts      Options
	logger    *logx.Logger
	templates *template.Template
}

// chatTurn is a history entry prepared for the template.
type chatTurn struct {
	Type    string
	Content string
}

// NewServer creates a web UI server over sessions and store.
func NewServer(sessions *workflow.Sessions, store *sandbox.Store, opts Options) *Server {
	templates, err := template.ParseFS(templateFS, "web/templates/*.html")
	if err != nil {
		// Templates are embedded at compile time.
		panic(fmt.Sprintf("Failed to parse embedded templates: %v", err))
	}
	if opts.SessionKey == "" {
		opts.SessionKey = "default"
	}

	return &Server{
		sessions:  sessions,
		store:     store,
		opts:      opts,
		logger:    logx.NewLogger("webui"),
		templates: templates,
	}
}

// requireAuth wraps an HTTP handler with Basic Authentication against the
// configured bcrypt hash. It is a no-op when no hash is configured.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.opts.PasswordHash == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			s.unauthorized(w)
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.opts.Username)) == 1
		passErr := bcrypt.CompareHashAndPassword([]byte(s.opts.PasswordHash), []byte(password))
		if !userOK || passErr != nil {
			s.logger.Warn("Failed authentication attempt from %s (username: %s)", r.RemoteAddr, username)
			s.unauthorized(w)
			return
		}

		next(w, r)
	}
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="sitesmith"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RegisterRoutes sets up HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.requireAuth(s.handleIndex))
	mux.HandleFunc("/process_request", s.requireAuth(s.handleProcessRequest))
	mux.HandleFunc("/sandbox/", s.requireAuth(s.handleSandbox))

	mux.HandleFunc("/api/state", s.requireAuth(s.handleState))
	mux.HandleFunc("/api/logs", s.requireAuth(s.handleLogs))
	mux.HandleFunc("/api/healthz", s.handleHealth)

	if s.opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// handleIndex renders the chat history next to the current website.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	st := s.sessions.Snapshot(s.opts.SessionKey)
	history := make([]chatTurn, 0, len(st.History))
	for i := range st.History {
		turn := &st.History[i]
		kind := string(turn.Origin)
		if turn.Origin == workflow.OriginAgent && strings.HasPrefix(turn.Content, workflow.ErrorTurnPrefix) {
			kind = "error"
		}
		history = append(history, chatTurn{Type: kind, Content: strings.TrimSpace(turn.Content)})
	}

	data := map[string]any{
		"ChatHistory": history,
		"PreviewURL":  fmt.Sprintf("/sandbox/%s?t=%d", sandbox.MarkupFile, time.Now().UnixNano()),
		"Model":       s.opts.Model.Model,
		"Offline":     s.opts.Model.Offline,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Failed to render index template: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handleProcessRequest implements POST /process_request. The workflow runs to
// completion before redirecting back to the page.
func (s *Server) handleProcessRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPromptBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	prompt := r.PostFormValue("user_prompt")

	_, err := s.sessions.Submit(r.Context(), s.opts.SessionKey, prompt)
	switch {
	case errors.Is(err, workflow.ErrEmptyRequest):
		http.Error(w, "user_prompt is required", http.StatusBadRequest)
		return
	case errors.Is(err, workflow.ErrCancelled):
		s.logger.Warn("Request cancelled by client: %v", err)
		return
	case err != nil:
		// Already recorded in the history as an agent turn.
		s.logger.Error("Workflow error: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSandbox serves the generated files.
func (s *Server) handleSandbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/sandbox/")
	data, err := s.store.Open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, sandbox.ErrOutsideRoot) {
			s.logger.Warn("Failed to read sandbox file %s: %v", name, err)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(notFoundPage))
		return
	}

	w.Header().Set("Content-Type", sandbox.ContentType(name)+"; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// handleState implements GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.sessions.Snapshot(s.opts.SessionKey))
}

// handleHealth implements GET /api/healthz. It is not behind auth.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"model":   s.opts.Model,
	})
}

// handleLogs implements GET /api/logs?domain=&since=RFC3339.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	domain := query.Get("domain")
	sinceStr := query.Get("since")

	var since time.Time
	if sinceStr != "" {
		var err error
		since, err = time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			http.Error(w, "Invalid since parameter (use RFC3339)", http.StatusBadRequest)
			return
		}
	}

	logs := logx.GetRecentLogEntries(domain, since)
	if len(logs) > 1000 {
		logs = logs[len(logs)-1000:]
	}
	s.writeJSON(w, logs)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// StartServer binds addr and serves until ctx is cancelled, then shuts down
// gracefully. Bind errors are returned; the server itself runs in the background.
func (s *Server) StartServer(ctx context.Context, addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting web UI server on %s", listener.Addr())

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down web UI server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // parent context is cancelled; shutdown needs a fresh one
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed: %v", err)
		}
	}()

	return listener.Addr(), nil
}

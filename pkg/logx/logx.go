// Package logx provides component-scoped logging with domain-filtered debug output
// and an in-memory buffer that the web UI reads from.
package logx

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// TimestampFormat is used for every emitted line and buffered entry.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger writes lines of the form "[ts] [component] LEVEL: message".
type Logger struct {
	component string
	logger    *log.Logger
}

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // nil = all domains
}

// LogEntry is a buffered log line exposed over /api/logs.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Component string `json:"component"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
}

// InMemoryLogBuffer keeps the most recent entries.
type InMemoryLogBuffer struct {
	entries []LogEntry
	mutex   sync.RWMutex
	maxSize int
}

type ctxKey struct{}

var (
	debugConfig = &DebugConfig{}
	debugMutex  sync.RWMutex

	output   io.Writer = os.Stderr
	outputMu sync.RWMutex

	logBuffer = NewLogBuffer(1000)
)

func init() { //nolint:gochecknoinits // env-driven debug switches
	initDebugFromEnv()
}

func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
	}
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = parseDomains(strings.Split(domains, ","))
	}
}

func parseDomains(domains []string) map[string]bool {
	if len(domains) == 0 {
		return nil
	}
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			set[d] = true
		}
	}
	return set
}

// NewLogger returns a logger tagged with component.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(writerProxy{}, "", 0),
	}
}

// SetOutput redirects every logger's output. Returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outputMu.Lock()
	defer outputMu.Unlock()
	prev := output
	output = w
	return prev
}

// writerProxy lets SetOutput take effect for loggers created earlier.
type writerProxy struct{}

func (writerProxy) Write(p []byte) (int, error) {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	return w.Write(p) //nolint:wrapcheck // passthrough
}

// SetDebug turns debug output on or off and optionally restricts it to domains.
func SetDebug(enabled bool, domains ...string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.Enabled = enabled
	debugConfig.Domains = parseDomains(domains)
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

// NewLogBuffer creates a buffer that retains at most maxSize entries.
func NewLogBuffer(maxSize int) *InMemoryLogBuffer {
	return &InMemoryLogBuffer{maxSize: maxSize}
}

// Add appends an entry, evicting the oldest beyond maxSize.
func (b *InMemoryLogBuffer) Add(entry *LogEntry) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.entries = append(b.entries, *entry)
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// Entries returns a filtered copy. Empty domain and zero since disable filtering.
func (b *InMemoryLogBuffer) Entries(domain string, since time.Time) []LogEntry {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]LogEntry, 0, len(b.entries))
	for i := range b.entries {
		e := &b.entries[i]
		if domain != "" && !strings.EqualFold(e.Domain, domain) && !strings.EqualFold(e.Component, domain) {
			continue
		}
		if !since.IsZero() {
			ts, err := time.Parse(TimestampFormat, e.Timestamp)
			if err != nil || ts.Before(since) {
				continue
			}
		}
		out = append(out, *e)
	}
	return out
}

// GetRecentLogEntries returns buffered entries for the web UI.
func GetRecentLogEntries(domain string, since time.Time) []LogEntry {
	return logBuffer.Entries(domain, since)
}

func (l *Logger) emit(level Level, domain, message string) {
	timestamp := time.Now().UTC().Format(TimestampFormat)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.component, level, message)
	logBuffer.Add(&LogEntry{
		Timestamp: timestamp,
		Component: l.component,
		Level:     string(level),
		Message:   message,
		Domain:    domain,
	})
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.emit(LevelDebug, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelWarn, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelError, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Component() string {
	return l.component
}

// With returns a logger for a sub-component, e.g. "workflow/router".
func (l *Logger) With(sub string) *Logger {
	return &Logger{component: l.component + "/" + sub, logger: l.logger}
}

// WithComponent tags ctx so that Debug can attribute lines.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ctxKey{}, component)
}

// ComponentFrom returns the component stored by WithComponent, or "unknown".
func ComponentFrom(ctx context.Context) string {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(string); ok {
			return c
		}
	}
	return "unknown"
}

// Debug logs a domain-scoped debug message.
//
//	DEBUG=1                           # all domains
//	DEBUG=1 DEBUG_DOMAINS=workflow    # only workflow
//	DEBUG=1 DEBUG_DOMAINS=workflow,llm
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	NewLogger(ComponentFrom(ctx)).emit(LevelDebug, domain, fmt.Sprintf("[%s] %s", domain, fmt.Sprintf(format, args...)))
}

// DebugFlow logs a workflow step transition.
func DebugFlow(ctx context.Context, domain, step, status string) {
	Debug(ctx, domain, "Flow %s: %s", step, status)
}

var defaultLogger = NewLogger("system")

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err and returns the wrapped error. Nil stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}

package agent

import (
	"context"
	"errors"
	"fmt"

	"sitesmith/pkg/agent/internal/llmimpl/anthropic"
	"sitesmith/pkg/agent/internal/llmimpl/fallback"
	"sitesmith/pkg/agent/internal/llmimpl/google"
	"sitesmith/pkg/agent/internal/llmimpl/ollama"
	"sitesmith/pkg/agent/internal/llmimpl/openaicompat"
	"sitesmith/pkg/agent/llm"
	"sitesmith/pkg/agent/llmerrors"
	"sitesmith/pkg/agent/middleware/logging"
	"sitesmith/pkg/agent/middleware/metrics"
	"sitesmith/pkg/agent/middleware/resilience/timeout"
	"sitesmith/pkg/config"
	"sitesmith/pkg/logx"
)

// Options carries collaborators for NewClient. The zero value is usable.
type Options struct {
	Recorder metrics.Recorder // nil disables metrics
	Logger   *logx.Logger     // nil uses an "agent" logger
}

// Client is the wrapped model client plus how it was obtained.
type Client struct {
	llm.LLMClient

	// Provider is the configured provider, even when Offline is set.
	Provider string
	// Offline is true when the fallback echo client is serving requests.
	Offline bool
	// Reason explains why the fallback was chosen. Empty when online.
	Reason string
}

// NewClient creates the model client for cfg. A backend that is unreachable
// at startup is replaced by the fallback client with a warning; that is not an
// error. Errors are returned only for unusable configuration or when ctx ends
// during the probe.
func NewClient(ctx context.Context, cfg *config.ModelConfig, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logx.NewLogger("agent")
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.Nop()
	}

	result := &Client{Provider: cfg.Provider}
	raw, err := newProviderClient(cfg)
	if err != nil {
		return nil, err
	}

	if raw == nil {
		result.Offline = true
		result.Reason = fmt.Sprintf("no credentials configured for %s", cfg.Provider)
	} else if pinger, ok := raw.(llm.Pinger); ok {
		if reason, perr := probe(ctx, pinger, cfg); perr != nil {
			return nil, perr
		} else if reason != "" {
			result.Offline = true
			result.Reason = reason
		}
	}

	if cfg.Provider == config.ProviderOffline {
		result.Offline = true
		result.Reason = "offline provider configured"
	}

	if result.Offline {
		if cfg.Provider != config.ProviderOffline {
			logger.Warn("⚠️  Model backend %s (%s) unavailable, using offline echo: %s", cfg.Provider, cfg.Name, result.Reason)
		}
		raw = fallback.New(cfg.FallbackEchoChars)
	}

	result.LLMClient = llm.Chain(raw,
		logging.Middleware(logger),
		metrics.Middleware(recorder, nil, logger),
		timeout.Middleware(cfg.Timeout()),
	)
	logger.Info("Model client ready: provider=%s model=%s offline=%t", cfg.Provider, result.GetModelName(), result.Offline)
	return result, nil
}

// newProviderClient returns nil without error when a hosted provider has no
// API key, which NewClient treats as unreachable.
func newProviderClient(cfg *config.ModelConfig) (llm.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaicompat.New(cfg.BaseURL, cfg.APIKey, cfg.Name), nil
	case config.ProviderOllama:
		return ollama.New(cfg.BaseURL, cfg.Name), nil
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return anthropic.New(cfg.BaseURL, cfg.APIKey, cfg.Name), nil
	case config.ProviderGoogle:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return google.New(cfg.BaseURL, cfg.APIKey, cfg.Name), nil
	case config.ProviderOffline:
		return fallback.New(cfg.FallbackEchoChars), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

// probe pings the backend. It returns a non-empty reason when the backend
// should be replaced by the fallback. Other probe failures are logged by the
// caller's middleware on first use and do not trigger the fallback.
func probe(ctx context.Context, pinger llm.Pinger, cfg *config.ModelConfig) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout())
	defer cancel()

	err := pinger.Ping(probeCtx)
	if err == nil {
		return "", nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("model probe interrupted: %w", ctx.Err())
	}
	if llmerrors.IsUnavailable(err) ||
		llmerrors.Is(err, llmerrors.ErrorTypeTransient) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err.Error(), nil
	}
	logx.Warnf("model probe for %s returned %v, keeping backend", cfg.Name, err)
	return "", nil
}

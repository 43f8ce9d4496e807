package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"sitesmith/pkg/agent"
	llmmetrics "sitesmith/pkg/agent/middleware/metrics"
	"sitesmith/pkg/config"
	"sitesmith/pkg/logx"
	"sitesmith/pkg/sandbox"
	"sitesmith/pkg/workflow"
)

// app is the wired set of components shared by serve, run and mcp.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry // nil when metrics are disabled
	client   *agent.Client
	store    *sandbox.Store
	sessions *workflow.Sessions
	logger   *logx.Logger
}

// loadConfig installs the config from the file named by v plus overrides.
func loadConfig(v *viper.Viper) (config.Config, error) {
	if err := config.LoadConfig(v.GetString(keyConfig), overrides(v)); err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	if cfg.Debug.Enabled {
		logx.SetDebug(true, cfg.Debug.Domains...)
	}
	logger := logx.NewLogger("sitesmith")

	// One sandbox serves every session key. Runs under different keys are
	// serialized only per key, so they can overwrite each other's files.
	store := sandbox.NewStore(cfg.Sandbox.Root)
	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize sandbox: %w", err)
	}

	var (
		registry  *prometheus.Registry
		recorder  llmmetrics.Recorder
		wfMetrics *workflow.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = llmmetrics.NewPrometheusRecorder(registry)
		wfMetrics = workflow.NewMetrics(registry)
	}

	client, err := agent.NewClient(ctx, cfg.Model, agent.Options{Recorder: recorder})
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	if client.Offline {
		logger.Warn("⚠️  Model backend unavailable (%s); replies come from the offline echo", client.Reason)
	}

	orch := workflow.NewOrchestrator(client, store,
		workflow.WithMetrics(wfMetrics),
		workflow.WithRequestLimits(cfg.Model.MaxTokens, cfg.Model.EffectiveTemperature()),
	)

	return &app{
		cfg:      cfg,
		registry: registry,
		client:   client,
		store:    store,
		sessions: workflow.NewSessions(orch),
		logger:   logger,
	}, nil
}

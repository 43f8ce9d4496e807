// Package metrics queries a Prometheus server that scrapes sitesmith and
// aggregates model usage per workflow step.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// StepUsage is the aggregated model usage of one workflow step.
type StepUsage struct {
	Step             string `json:"step"`
	Requests         int64  `json:"requests"`
	Failures         int64  `json:"failures"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// Usage is the result of a usage query.
type Usage struct {
	Steps []StepUsage      `json:"steps"`
	Runs  map[string]int64 `json:"runs"` // by outcome
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetUsage retrieves token and request totals per step plus run outcomes.
// A non-empty modelName restricts the model call series to that model.
func (q *QueryService) GetUsage(ctx context.Context, modelName string) (*Usage, error) {
	selector := ""
	if modelName != "" {
		selector = fmt.Sprintf("model=%q, ", modelName)
	}

	steps := make(map[string]*StepUsage)
	stepFor := func(name string) *StepUsage {
		s, ok := steps[name]
		if !ok {
			s = &StepUsage{Step: name}
			steps[name] = s
		}
		return s
	}

	queries := []struct {
		query string
		apply func(s *StepUsage, v int64)
	}{
		{fmt.Sprintf(`sum by (step) (llm_requests_total{%s})`, trimSelector(selector)), func(s *StepUsage, v int64) { s.Requests = v }},
		{fmt.Sprintf(`sum by (step) (llm_requests_total{%sstatus="error"})`, selector), func(s *StepUsage, v int64) { s.Failures = v }},
		{fmt.Sprintf(`sum by (step) (llm_tokens_total{%stype="prompt"})`, selector), func(s *StepUsage, v int64) { s.PromptTokens = v }},
		{fmt.Sprintf(`sum by (step) (llm_tokens_total{%stype="completion"})`, selector), func(s *StepUsage, v int64) { s.CompletionTokens = v }},
	}
	for _, qq := range queries {
		vector, err := q.vector(ctx, qq.query)
		if err != nil {
			return nil, err
		}
		for _, sample := range vector {
			qq.apply(stepFor(string(sample.Metric["step"])), int64(sample.Value))
		}
	}

	usage := &Usage{Runs: make(map[string]int64)}
	for _, s := range steps {
		s.TotalTokens = s.PromptTokens + s.CompletionTokens
		usage.Steps = append(usage.Steps, *s)
	}
	sort.Slice(usage.Steps, func(i, j int) bool { return usage.Steps[i].Step < usage.Steps[j].Step })

	runs, err := q.vector(ctx, `sum by (outcome) (workflow_runs_total)`)
	if err != nil {
		return nil, err
	}
	for _, sample := range runs {
		usage.Runs[string(sample.Metric["outcome"])] = int64(sample.Value)
	}

	return usage, nil
}

func (q *QueryService) vector(ctx context.Context, query string) (model.Vector, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", query, err)
	}
	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %s for %s", result.Type(), query)
	}
	return vector, nil
}

func trimSelector(s string) string {
	if len(s) >= 2 {
		return s[:len(s)-2]
	}
	return s
}

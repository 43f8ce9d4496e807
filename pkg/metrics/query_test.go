package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answer struct {
	substr string
	result string
}

// fakePrometheus answers instant queries with the first answer whose substr
// occurs in the query.
func fakePrometheus(t *testing.T, answers []answer) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		query := r.Form.Get("query")
		mu.Lock()
		seen = append(seen, query)
		mu.Unlock()

		result := "[]"
		for _, a := range answers {
			if strings.Contains(query, a.substr) {
				result = a.result
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":%s}}`, result)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func sample(label, value, v string) string {
	return fmt.Sprintf(`{"metric":{%q:%q},"value":[1700000000,%q]}`, label, value, v)
}

func TestGetUsageAggregatesPerStep(t *testing.T) {
	srv, _ := fakePrometheus(t, []answer{
		{`status="error"`, "[" + sample("step", "planner", "1") + "]"},
		{`type="prompt"`, "[" + sample("step", "router", "120") + "," + sample("step", "planner", "400") + "]"},
		{`type="completion"`, "[" + sample("step", "router", "2") + "," + sample("step", "planner", "900") + "]"},
		{`llm_requests_total`, "[" + sample("step", "router", "6") + "," + sample("step", "planner", "3") + "]"},
		{`workflow_runs_total`, "[" + sample("outcome", "completed", "3") + "," + sample("outcome", "model_failed", "1") + "]"},
	})

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	usage, err := q.GetUsage(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, usage.Steps, 2)
	planner := usage.Steps[0]
	assert.Equal(t, "planner", planner.Step)
	assert.Equal(t, int64(3), planner.Requests)
	assert.Equal(t, int64(1), planner.Failures)
	assert.Equal(t, int64(1300), planner.TotalTokens)

	router := usage.Steps[1]
	assert.Equal(t, "router", router.Step)
	assert.Equal(t, int64(6), router.Requests)
	assert.Equal(t, int64(122), router.TotalTokens)

	assert.Equal(t, int64(3), usage.Runs["completed"])
	assert.Equal(t, int64(1), usage.Runs["model_failed"])
}

func TestGetUsageFiltersByModel(t *testing.T) {
	srv, seen := fakePrometheus(t, nil)

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	usage, err := q.GetUsage(context.Background(), "Qwen/Qwen3-14B")
	require.NoError(t, err)
	assert.Empty(t, usage.Steps)

	require.Len(t, *seen, 5)
	assert.Equal(t, `sum by (step) (llm_requests_total{model="Qwen/Qwen3-14B"})`, (*seen)[0])
	for _, query := range (*seen)[:4] {
		assert.Contains(t, query, `model="Qwen/Qwen3-14B"`)
	}
}

func TestGetUsageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"error","errorType":"bad_data","error":"parse error"}`)
	}))
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	_, err = q.GetUsage(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query")
}

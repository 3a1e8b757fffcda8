package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/synthscribe/synthscribe/ai/llm"
	"github.com/synthscribe/synthscribe/ai/suggest"
	"github.com/synthscribe/synthscribe/experiment"
)

var (
	_ experiment.Recorder = (*PrometheusExporter)(nil)
	_ llm.Recorder        = (*PrometheusExporter)(nil)
	_ suggest.Recorder    = (*PrometheusExporter)(nil)
)

func TestPrometheusExporter(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	t.Run("ObserveExperimentEvents", func(t *testing.T) {
		exporter.ObserveImpression("prompt_optimization_v1", "zero_shot")
		exporter.ObserveImpression("prompt_optimization_v1", "few_shot")
		exporter.ObserveSuccess("prompt_optimization_v1", "few_shot")
		exporter.ObserveFeedback("prompt_optimization_v1", "few_shot", 4.5)

		exporter.SetActiveExperiments(2)
	})

	t.Run("RecordLLMCall", func(t *testing.T) {
		exporter.RecordLLMCall("gpt-4o-mini", "openai", 500*time.Millisecond, 120, 80, true)
		exporter.RecordLLMCall("gpt-4o-mini", "openai", 2*time.Second, 0, 0, false)
	})

	t.Run("RecordCache", func(t *testing.T) {
		exporter.RecordCacheHit()
		exporter.RecordCacheHit()
		exporter.RecordCacheMiss()
	})
}

func TestPrometheusExporterHandler(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	exporter.ObserveImpression("prompt_optimization_v1", "zero_shot")
	exporter.ObserveSuccess("prompt_optimization_v1", "zero_shot")
	exporter.ObserveFeedback("prompt_optimization_v1", "zero_shot", 5)
	exporter.RecordLLMCall("gpt-4o-mini", "openai", 100*time.Millisecond, 50, 20, true)
	exporter.RecordCacheMiss()

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	exporter.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	text := string(body)

	for _, want := range []string{
		"synthscribe_experiment_impressions_total",
		"synthscribe_experiment_successes_total",
		"synthscribe_experiment_feedback_score",
		"synthscribe_ai_llm_requests_total",
		"synthscribe_ai_llm_latency_seconds",
		"synthscribe_ai_suggestion_cache_misses_total",
		`experiment="prompt_optimization_v1"`,
		`variant="zero_shot"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

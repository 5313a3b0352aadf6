package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(stageCallsLatencyMs, stageTokensIn) }

var stageCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "stage_calls_latency_ms",
		Help:    "Provider stage call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"stage", "provider", "model", "success"},
)

var stageTokensIn = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stage_prompt_tokens",
		Help: "Estimated prompt tokens sent per stage/provider/model.",
	},
	[]string{"stage", "provider", "model"},
)

func ObserveStageCall(stage, provider, model string, latencyMs int, success bool) {
	stageCallsLatencyMs.WithLabelValues(norm(stage), norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddStageTokens(stage, provider, model string, tokens int) {
	stageTokensIn.WithLabelValues(norm(stage), norm(provider), norm(model)).Add(float64(tokens))
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const metricsNamespace = "observe"

// No per-video or per-session labels: cardinality stays bounded.
var (
	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "llm_calls_total",
		Help:      "Outbound analysis provider calls, by provider.",
	}, []string{"provider"})

	llmErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "llm_errors_total",
		Help:      "Failed analysis provider calls, by provider.",
	}, []string{"provider"})

	llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "llm_duration_seconds",
		Help:      "Wall time of a provider call including retries.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"provider"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hits_total",
		Help:      "Report cache hits, by tier.",
	}, []string{"tier"})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_misses_total",
		Help:      "Report cache misses.",
	})

	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "resolve_total",
		Help:      "Video reference resolutions, by outcome (resolved, not_found).",
	}, []string{"outcome"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "analyses_total",
		Help:      "Analysis requests, by outcome (ok, cached, invalid, failed, malformed).",
	}, []string{"outcome"})

	analysesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "analyses_in_flight",
		Help:      "Outbound analyses currently running.",
	})

	sessionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "session_conflicts_total",
		Help:      "Requests rejected because the session already had one in flight.",
	})

	oembedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "oembed_requests_total",
		Help:      "Video metadata lookups, by outcome.",
	}, []string{"outcome"})

	captionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "caption_requests_total",
		Help:      "Caption excerpt lookups, by outcome (ok, none, failed).",
	}, []string{"outcome"})
)

// Incrementors for sub-packages.
func IncrResolve(found bool) {
	if found {
		resolveTotal.WithLabelValues("resolved").Inc()
		return
	}
	resolveTotal.WithLabelValues("not_found").Inc()
}

func IncrAnalysis(outcome string) { analysesTotal.WithLabelValues(outcome).Inc() }
func IncrSessionConflict()        { sessionConflicts.Inc() }
func IncrOEmbed(outcome string)   { oembedRequests.WithLabelValues(outcome).Inc() }
func IncrCaptions(outcome string) { captionRequests.WithLabelValues(outcome).Inc() }
func TrackInFlight(delta float64) { analysesInFlight.Add(delta) }

// FormatMetrics returns this service's metrics as a simple text format for
// the MCP server's metrics endpoint.
func FormatMetrics() string {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Sprintf("# gather failed: %v\n", err)
	}
	var lines []string
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricsNamespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %s", mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m)))
		}
	}
	sort.Strings(lines)
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	}
	return "0"
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

// ReviewMetrics records review pipeline timings and model token usage. It
// satisfies ports.ReviewObserver; ObserveUsage plugs into the usage ledger.
type ReviewMetrics struct {
	service string

	stageDuration  *prometheus.HistogramVec
	reviewDuration *prometheus.HistogramVec
	reviewChunks   prometheus.Histogram
	tokensTotal    *prometheus.CounterVec
}

func NewReviewMetrics(service string, registerer prometheus.Registerer) *ReviewMetrics {
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "stage_duration_seconds",
			Help:      "Review stage duration in seconds by stage and status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "stage", "status"},
	)
	reviewDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "duration_seconds",
			Help:      "Full manuscript review duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	reviewChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "chunks",
			Help:      "Distribution of chunks per reviewed manuscript.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by model calls, by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registerer.MustRegister(stageDuration, reviewDuration, reviewChunks, tokensTotal)

	return &ReviewMetrics{
		service:        service,
		stageDuration:  stageDuration,
		reviewDuration: reviewDuration,
		reviewChunks:   reviewChunks,
		tokensTotal:    tokensTotal,
	}
}

func (m *ReviewMetrics) ObserveStage(stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(m.service, stage, statusLabel(err)).Observe(duration.Seconds())
}

func (m *ReviewMetrics) ObserveReview(chunks int, duration time.Duration, err error) {
	m.reviewDuration.WithLabelValues(m.service, statusLabel(err)).Observe(duration.Seconds())
	if err == nil {
		m.reviewChunks.Observe(float64(chunks))
	}
}

func (m *ReviewMetrics) ObserveUsage(usage domain.TokenUsage) {
	model := usage.Model
	if model == "" {
		model = "unknown"
	}
	if usage.PromptTokens > 0 {
		m.tokensTotal.WithLabelValues(m.service, "in", model).Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		m.tokensTotal.WithLabelValues(m.service, "out", model).Add(float64(usage.CompletionTokens))
	}
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}

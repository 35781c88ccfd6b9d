package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink counts commands, tokens and latency.
type PrometheusSink struct {
	commands *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	objects  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPrometheusSink registers its collectors with reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasai",
			Name:      "commands_total",
			Help:      "Commands processed, by outcome and source.",
		}, []string{"outcome", "source"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasai",
			Name:      "model_tokens_total",
			Help:      "Model tokens consumed, by direction.",
		}, []string{"direction"}),
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasai",
			Name:      "objects_total",
			Help:      "Canvas objects touched by commands, by operation.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "canvasai",
			Name:      "command_duration_seconds",
			Help:      "End-to-end command latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source"}),
	}
	for _, c := range []prometheus.Collector{s.commands, s.tokens, s.objects, s.latency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("telemetry: register metrics: %w", err)
		}
	}
	return s, nil
}

func (s *PrometheusSink) Name() string { return "prometheus" }

func (s *PrometheusSink) Record(_ context.Context, rec TraceRecord) error {
	s.commands.WithLabelValues(rec.Outcome(), rec.Source()).Inc()
	s.tokens.WithLabelValues("input").Add(float64(rec.InputTokens))
	s.tokens.WithLabelValues("output").Add(float64(rec.OutputTokens))
	s.objects.WithLabelValues("created").Add(float64(rec.ObjectCount))
	s.objects.WithLabelValues("modified").Add(float64(rec.ModifiedCount))
	s.objects.WithLabelValues("deleted").Add(float64(rec.DeletedCount))
	s.latency.WithLabelValues(rec.Source()).Observe(rec.Latency().Seconds())
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

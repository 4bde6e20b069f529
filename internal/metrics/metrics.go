// Package metrics exposes Prometheus metrics for negotiation sessions and
// external tool calls.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/mark3labs/dualai/internal/agent"
	ierr "github.com/mark3labs/dualai/internal/errors"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics holds Prometheus metrics for dualai.
//
// Metrics:
//   - dualai_sessions_total{state,consensus} - Finished sessions
//   - dualai_session_rounds - Histogram of rounds used per session
//   - dualai_session_duration_seconds - Histogram of session wall time
//   - dualai_structuring_fallbacks_total - Sessions that used the fallback structured request
//   - dualai_tool_calls_total{tool,outcome} - External tool calls
//   - dualai_tool_call_duration_seconds{tool} - Histogram of tool call time
type Metrics struct {
	negotiation.NopObserver

	SessionsTotal        *prometheus.CounterVec
	SessionRounds        prometheus.Histogram
	SessionDuration      prometheus.Histogram
	StructuringFallbacks prometheus.Counter
	ToolCallsTotal       *prometheus.CounterVec
	ToolCallDuration     *prometheus.HistogramVec
}

var _ negotiation.Observer = (*Metrics)(nil)

// Default returns the metrics registered on the default Prometheus registry.
// Registration happens once per process.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dualai_sessions_total",
				Help: "Total number of finished negotiation sessions",
			},
			[]string{"state", "consensus"},
		),
		SessionRounds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dualai_session_rounds",
				Help:    "Rounds used per session",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),
		SessionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dualai_session_duration_seconds",
				Help:    "Wall time of a session in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
		),
		StructuringFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dualai_structuring_fallbacks_total",
				Help: "Sessions that used the fallback structured request",
			},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dualai_tool_calls_total",
				Help: "Total number of external tool calls",
			},
			[]string{"tool", "outcome"},
		),
		ToolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dualai_tool_call_duration_seconds",
				Help:    "Duration of external tool calls in seconds, retries included",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
			},
			[]string{"tool"},
		),
	}
}

// StructuringFallback counts a fallback structured request.
func (m *Metrics) StructuringFallback(err error) {
	m.StructuringFallbacks.Inc()
}

// Finished records the outcome of a session.
func (m *Metrics) Finished(rec negotiation.Record) {
	m.SessionsTotal.WithLabelValues(string(rec.State), strconv.FormatBool(rec.Consensus)).Inc()
	m.SessionRounds.Observe(float64(rec.RoundsUsed))
	if !rec.StartedAt.IsZero() && !rec.EndedAt.IsZero() {
		m.SessionDuration.Observe(rec.EndedAt.Sub(rec.StartedAt).Seconds())
	}
}

// Outcome labels for tool calls.
const (
	OutcomeOK          = "ok"
	OutcomeCancelled   = "cancelled"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timeout"
	OutcomeEmptyOutput = "empty_output"
	OutcomeExecution   = "execution_error"
	OutcomeOther       = "error"
)

// Outcome classifies the result of a tool call.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeCancelled
	}
	var toolErr *ierr.ToolError
	if !errors.As(err, &toolErr) {
		return OutcomeOther
	}
	switch toolErr.Kind {
	case ierr.KindUnavailable:
		return OutcomeUnavailable
	case ierr.KindTimeout:
		return OutcomeTimeout
	case ierr.KindEmptyOutput:
		return OutcomeEmptyOutput
	case ierr.KindExecution:
		return OutcomeExecution
	default:
		return OutcomeOther
	}
}

// Instrument wraps an agent so every Execute is counted and timed.
func (m *Metrics) Instrument(a agent.Agent) agent.Agent {
	return &instrumented{Agent: a, m: m}
}

type instrumented struct {
	agent.Agent
	m *Metrics
}

func (i *instrumented) Execute(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	start := time.Now()
	out, err := i.Agent.Execute(ctx, prompt, timeout)
	name := i.Agent.Name()
	i.m.ToolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	i.m.ToolCallsTotal.WithLabelValues(name, Outcome(err)).Inc()
	return out, err
}

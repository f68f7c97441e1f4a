// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/storybot/core/logger"
)

const namespace = "storybot"

// Metrics groups the collectors recorded by the bot. A nil *Metrics is a no-op.
type Metrics struct {
	updates     *prometheus.CounterVec
	handlerTime *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	deletions   *prometheus.CounterVec
	sends       *prometheus.CounterVec
	rateLimited prometheus.Counter
	panics      prometheus.Counter
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns collectors registered on the default registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers a fresh set of collectors on reg. Tests pass their own registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Incoming Telegram updates by kind.",
		}, []string{"kind"}),
		handlerTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler", "status"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Conversation session outcomes by mode.",
		}, []string{"mode", "outcome"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Episode deliveries by payload kind and result.",
		}, []string{"kind", "result"}),
		deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_deletions_total",
			Help:      "Deferred message deletions by result.",
		}, []string{"result"}),
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_api_calls_total",
			Help:      "Outbound Bot API calls by action and error kind.",
		}, []string{"action", "result"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limiter.",
		}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Recovered handler panics.",
		}),
	}
}

// Update counts one incoming update.
func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

// Handled observes how long a handler took.
func (m *Metrics) Handled(handler, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.handlerTime.WithLabelValues(handler, status).Observe(took.Seconds())
}

// Transition counts a session directive applied for mode.
func (m *Metrics) Transition(mode, outcome string) {
	if m == nil {
		return
	}
	if mode == "" {
		mode = "none"
	}
	m.transitions.WithLabelValues(mode, outcome).Inc()
}

// Delivery counts an episode delivery attempt.
func (m *Metrics) Delivery(kind string, err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(kind, result(err)).Inc()
}

// Deletion counts a deferred deletion attempt.
func (m *Metrics) Deletion(err error) {
	if m == nil {
		return
	}
	m.deletions.WithLabelValues(result(err)).Inc()
}

// Send counts an outbound API call; kind is "ok" or an error class.
func (m *Metrics) Send(action, kind string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(action, kind).Inc()
}

// RateLimited counts an update dropped by the limiter.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Panic counts a recovered panic.
func (m *Metrics) Panic() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

func result(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Serve exposes g on addr+path until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr, path string, g prometheus.Gatherer) error {
	if addr == "" {
		return nil
	}
	if path == "" {
		path = "/metrics"
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.L.Info("metrics listening",
		slog.String("component", "app"),
		slog.String("event", "metrics.listen"),
		slog.String("listen", addr),
		slog.String("path", path),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

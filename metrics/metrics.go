package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/pipeline"
	"github.com/poiesic/homily/queue"
)

const namespace = "homily"

var (
	_ pipeline.Observer = (*Metrics)(nil)
	_ queue.Observer    = (*Metrics)(nil)
)

// DepthSource reports queued jobs by priority class.
type DepthSource interface {
	Depth() queue.Depth
}

// Metrics records stage, item and queue activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry
	factory  promauto.Factory

	stageExecutions *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageCost       *prometheus.CounterVec
	stagesInFlight  prometheus.Gauge
	itemRuns        *prometheus.CounterVec
	itemWarnings    *prometheus.CounterVec
	queueJobs       *prometheus.CounterVec
	queueWait       *prometheus.HistogramVec
	jobsRunning     prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		factory:  f,
		stageExecutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_executions_total",
			Help:      "Stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of stage actions that ran.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		stageCost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_cost_usd_total",
			Help:      "External service spend in USD by stage and cost category.",
		}, []string{"stage", "category"}),
		stagesInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stages_in_flight",
			Help:      "Stages currently executing.",
		}),
		itemRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_runs_total",
			Help:      "Finished item runs by run status.",
		}, []string{"status"}),
		itemWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_warnings_total",
			Help:      "Recoverable stage failures by stage.",
		}, []string{"stage"}),
		queueJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_jobs_total",
			Help:      "Finished queue jobs by priority and status.",
		}, []string{"priority", "status"}),
		queueWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time jobs spent queued before starting.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"priority"}),
		jobsRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs_running",
			Help:      "Queue jobs currently running.",
		}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WatchQueue exports the queue depth per priority class, read at scrape
// time. Call it once per Metrics.
func (m *Metrics) WatchQueue(src DepthSource) {
	classes := map[string]func(queue.Depth) int{
		"high":    func(d queue.Depth) int { return d.High },
		"default": func(d queue.Depth) int { return d.Default },
		"low":     func(d queue.Depth) int { return d.Low },
	}
	for class, pick := range classes {
		m.factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "queue_depth",
			Help:        "Jobs waiting in the queue by priority class.",
			ConstLabels: prometheus.Labels{"priority": class},
		}, func() float64 {
			return float64(pick(src.Depth()))
		})
	}
}

func (m *Metrics) BeforeStage(ctx context.Context, itemID string, stage pipeline.Stage) {
	m.stagesInFlight.Inc()
}

func (m *Metrics) AfterStage(ctx context.Context, itemID string, stage pipeline.Stage, result core.StageResult) {
	m.stagesInFlight.Dec()
	m.stageExecutions.WithLabelValues(stage.Name, string(result.Outcome)).Inc()
	if result.Outcome != core.OutcomeSkipped {
		m.stageDuration.WithLabelValues(stage.Name).Observe(result.Duration.Seconds())
	}
	for category, usd := range result.Costs {
		if usd > 0 {
			m.stageCost.WithLabelValues(stage.Name, category).Add(usd)
		}
	}
}

func (m *Metrics) AfterItem(ctx context.Context, itemID string, summary *core.ArtifactSummary, err error) {
	status := "error"
	if summary != nil && summary.RunStatus != "" {
		status = string(summary.RunStatus)
	}
	m.itemRuns.WithLabelValues(status).Inc()
	if summary == nil {
		return
	}
	for _, w := range summary.Warnings {
		m.itemWarnings.WithLabelValues(w.Stage).Inc()
	}
}

func (m *Metrics) JobStarted(job queue.Job) {
	m.jobsRunning.Inc()
	if job.StartedAt != nil {
		m.queueWait.WithLabelValues(job.Priority.String()).Observe(job.StartedAt.Sub(job.EnqueuedAt).Seconds())
	}
}

func (m *Metrics) JobFinished(job queue.Job) {
	m.jobsRunning.Dec()
	m.queueJobs.WithLabelValues(job.Priority.String(), string(job.Status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes Handler at /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "component", "metrics", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

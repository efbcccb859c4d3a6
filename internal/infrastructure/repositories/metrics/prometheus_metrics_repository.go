package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const namespace = "seoremedy"

// PrometheusMetricsRepository exports counters and histograms on its own registry.
type PrometheusMetricsRepository struct {
	registry *prometheus.Registry

	pagesCrawled      *prometheus.CounterVec
	pageDuration      prometheus.Histogram
	crawlsFinished    prometheus.Counter
	crawlPages        prometheus.Histogram
	crawlDuration     prometheus.Histogram
	batchTransitions  *prometheus.CounterVec
	changesRecorded   *prometheus.CounterVec
	fixOutcomes       *prometheus.CounterVec
	vcsCommands       *prometheus.CounterVec
	vcsCommandSeconds *prometheus.HistogramVec
}

var _ repositories.MetricsRepository = (*PrometheusMetricsRepository)(nil)

// NewPrometheusMetricsRepository creates the collectors and registers them with Go and
// process collectors on a fresh registry.
func NewPrometheusMetricsRepository() *PrometheusMetricsRepository {
	it := &PrometheusMetricsRepository{
		registry: prometheus.NewRegistry(),
		pagesCrawled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_crawled_total",
			Help:      "Pages visited by crawls, by outcome.",
		}, []string{"outcome"}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_visit_duration_seconds",
			Help:      "Time spent navigating, parsing and analysing one page.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		crawlsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Crawls run to completion.",
		}),
		crawlPages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_pages",
			Help:      "Pages reported per crawl.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		crawlDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of whole crawls.",
			Buckets:   []float64{1, 5, 10, 15, 30, 60, 120},
		}),
		batchTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_transitions_total",
			Help:      "Batch lifecycle transitions, by resulting status.",
		}, []string{"status"}),
		changesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_recorded_total",
			Help:      "Changes committed to batches, by change type.",
		}, []string{"change_type"}),
		fixOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fix_outcomes_total",
			Help:      "Fixes handled by the pipeline, by outcome.",
		}, []string{"outcome"}),
		vcsCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vcs_commands_total",
			Help:      "Version-control commands run, by operation and status.",
		}, []string{"operation", "status"}),
		vcsCommandSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vcs_command_duration_seconds",
			Help:      "Duration of version-control commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	it.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		it.pagesCrawled,
		it.pageDuration,
		it.crawlsFinished,
		it.crawlPages,
		it.crawlDuration,
		it.batchTransitions,
		it.changesRecorded,
		it.fixOutcomes,
		it.vcsCommands,
		it.vcsCommandSeconds,
	)
	return it
}

// Registry returns the registry holding every collector.
func (it *PrometheusMetricsRepository) Registry() *prometheus.Registry {
	return it.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (it *PrometheusMetricsRepository) Handler() http.Handler {
	return promhttp.HandlerFor(it.registry, promhttp.HandlerOpts{Registry: it.registry})
}

func (it *PrometheusMetricsRepository) PageCrawled(outcome string, duration time.Duration) {
	it.pagesCrawled.WithLabelValues(outcome).Inc()
	it.pageDuration.Observe(duration.Seconds())
}

func (it *PrometheusMetricsRepository) CrawlFinished(pages int, duration time.Duration) {
	it.crawlsFinished.Inc()
	it.crawlPages.Observe(float64(pages))
	it.crawlDuration.Observe(duration.Seconds())
}

func (it *PrometheusMetricsRepository) BatchTransition(status entities.BatchStatus) {
	it.batchTransitions.WithLabelValues(string(status)).Inc()
}

func (it *PrometheusMetricsRepository) ChangeRecorded(changeType entities.ChangeType) {
	it.changesRecorded.WithLabelValues(string(changeType)).Inc()
}

func (it *PrometheusMetricsRepository) FixOutcome(outcome string) {
	it.fixOutcomes.WithLabelValues(outcome).Inc()
}

func (it *PrometheusMetricsRepository) VCSCommand(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = string(entities.KindOf(err))
	}
	it.vcsCommands.WithLabelValues(operation, status).Inc()
	it.vcsCommandSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"navwatch/internal/application/port"
)

// Metrics holds the crawl metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	CrawlsTotal   *prometheus.CounterVec // labels: result=ok|failed
	PointsAdded   *prometheus.CounterVec // labels: fund
	CrawlDuration prometheus.Histogram
	SeriesLength  *prometheus.GaugeVec   // labels: fund
	SourcePoints  *prometheus.CounterVec // labels: strategy
	NonDurable    prometheus.Counter
	LastSuccess   *prometheus.GaugeVec // labels: fund; unix seconds
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CrawlsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fund_crawls_total",
			Help:      "Fund crawl tasks by result",
		}, []string{"result"}),
		PointsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nav_points_added_total",
			Help:      "New NAV dates merged into the history",
		}, []string{"fund"}),
		CrawlDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fund_crawl_duration_seconds",
			Help:      "Wall time of one fund crawl",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		SeriesLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nav_series_points",
			Help:      "Stored NAV points per fund",
		}, []string{"fund"}),
		SourcePoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_points_total",
			Help:      "Accepted points per extraction strategy",
		}, []string{"strategy"}),
		NonDurable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_save_failures_total",
			Help:      "Merges kept in memory only because the store rejected the write",
		}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fund_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful crawl per fund",
		}, []string{"fund"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CrawlsTotal,
		m.PointsAdded,
		m.CrawlDuration,
		m.SeriesLength,
		m.SourcePoints,
		m.NonDurable,
		m.LastSuccess,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PublishCrawl records one crawl event.
func (m *Metrics) PublishCrawl(ctx context.Context, ev port.CrawlEvent) error {
	fund := string(ev.Code)
	m.CrawlDuration.Observe(ev.Duration.Seconds())

	if !ev.OK {
		m.CrawlsTotal.WithLabelValues("failed").Inc()
		if ev.TotalCount > 0 && !ev.Durable {
			m.NonDurable.Inc()
		}
		return nil
	}

	m.CrawlsTotal.WithLabelValues("ok").Inc()
	m.PointsAdded.WithLabelValues(fund).Add(float64(ev.Added))
	m.SeriesLength.WithLabelValues(fund).Set(float64(ev.TotalCount))
	m.LastSuccess.WithLabelValues(fund).Set(float64(ev.Ts.Unix()))
	for strategy, n := range ev.Sources {
		m.SourcePoints.WithLabelValues(strategy).Add(float64(n))
	}
	return nil
}

var _ port.EventSink = (*Metrics)(nil)

// Package metrics exposes Prometheus collectors for the archive service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeRunsTotal            *prometheus.CounterVec
	scrapeRunDurationSeconds   *prometheus.HistogramVec
	scrapeRecordsParsedTotal   prometheus.Counter
	scrapeRowsWrittenTotal     prometheus.Counter
	scrapeRetrySkipsTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trending_scrape_runs_total",
				Help: "Total number of scrape pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trending_scrape_run_duration_seconds",
				Help:    "Histogram of scrape pipeline run durations, labeled by outcome.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		)

		scrapeRecordsParsedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trending_records_parsed_total",
				Help: "Total number of trending records parsed from the page.",
			},
		)

		scrapeRowsWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trending_archive_rows_written_total",
				Help: "Total number of archive rows written by upserts.",
			},
		)

		scrapeRetrySkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trending_retry_skips_total",
				Help: "Total number of skipped scrape invocations, labeled by reason.",
			},
			[]string{"reason"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrapeRun records one pipeline run by outcome.
func ObserveScrapeRun(outcome string, duration time.Duration) {
	if scrapeRunsTotal == nil {
		return
	}
	scrapeRunsTotal.WithLabelValues(outcome).Inc()
	scrapeRunDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveRecordsParsed adds to the parsed record counter.
func ObserveRecordsParsed(count int) {
	if scrapeRecordsParsedTotal == nil || count <= 0 {
		return
	}
	scrapeRecordsParsedTotal.Add(float64(count))
}

// ObserveRowsWritten adds to the archive rows written counter.
func ObserveRowsWritten(rows int64) {
	if scrapeRowsWrittenTotal == nil || rows <= 0 {
		return
	}
	scrapeRowsWrittenTotal.Add(float64(rows))
}

// ObserveRetrySkip records a skipped invocation by reason.
func ObserveRetrySkip(reason string) {
	if scrapeRetrySkipsTotal == nil {
		return
	}
	scrapeRetrySkipsTotal.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SearchRequestsTotal    metric.Int64Counter
	SearchDurationSeconds  metric.Float64Histogram
	SearchErrorsTotal      metric.Int64Counter
	SearchCacheHitsTotal   metric.Int64Counter
	StaleResultsDiscarded  metric.Int64Counter
	DebounceSuperseded     metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider, so it must
// run after the provider is installed to export anything.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-poi-explore")
		var err error
		m := &AppMetrics{}

		m.SearchRequestsTotal, err = meter.Int64Counter(
			"places_search_requests_total",
			metric.WithDescription("Total number of requests sent to the places provider"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create places_search_requests_total: %v", err)
		}

		m.SearchDurationSeconds, err = meter.Float64Histogram(
			"places_search_duration_seconds",
			metric.WithDescription("Duration of places provider requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create places_search_duration_seconds: %v", err)
		}

		m.SearchErrorsTotal, err = meter.Int64Counter(
			"places_search_errors_total",
			metric.WithDescription("Total number of failed places provider requests, by kind"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create places_search_errors_total: %v", err)
		}

		m.SearchCacheHitsTotal, err = meter.Int64Counter(
			"places_search_cache_hits_total",
			metric.WithDescription("Total number of provider lookups answered from cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create places_search_cache_hits_total: %v", err)
		}

		m.StaleResultsDiscarded, err = meter.Int64Counter(
			"explore_stale_results_discarded_total",
			metric.WithDescription("Fetch completions dropped because a newer fetch was issued"),
			metric.WithUnit("{result}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create explore_stale_results_discarded_total: %v", err)
		}

		m.DebounceSuperseded, err = meter.Int64Counter(
			"explore_debounce_superseded_total",
			metric.WithDescription("Debounced fetches cancelled before firing"),
			metric.WithUnit("{fetch}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create explore_debounce_superseded_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global AppMetrics, initializing it against the current
// MeterProvider (a no-op provider in tests) on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_pages_fetched_total",
			Help: "The total number of listing page fetches by outcome",
		},
		[]string{"status"},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "user_page_fetch_duration_seconds",
			Help:    "Duration of listing page fetches",
			Buckets: prometheus.DefBuckets,
		},
	)

	PageCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_page_cache_lookups_total",
			Help: "Page cache lookups by result",
		},
		[]string{"result"},
	)

	UsersDuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_duplicates_skipped_total",
			Help: "Users dropped while merging a page because their id was already listed",
		},
	)

	StaleResponsesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "user_page_stale_responses_discarded_total",
			Help: "Fetch results dropped because a refresh started a new epoch",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_list_active_sessions",
			Help: "Number of mounted list screens",
		},
	)

	PageEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_page_events_published_total",
			Help: "Page loaded events published to Kafka by outcome",
		},
		[]string{"status"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// depth
	DepthAggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depth_aggregations_total",
			Help: "Total number of depth snapshots aggregated",
		},
		[]string{"symbol"},
	)
	DepthAggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "depth_aggregation_duration_seconds",
			Help:    "Duration of depth aggregation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
	CrossedBooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depth_crossed_books_total",
			Help: "Snapshots where the best bid reached the best ask",
		},
		[]string{"symbol"},
	)

	// feed
	FeedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetches_total",
			Help: "Total number of order book fetches from the upstream feed",
		},
		[]string{"source", "status"},
	)
	FeedEntriesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_entries_dropped_total",
			Help: "Order book entries rejected at the feed boundary",
		},
		[]string{"symbol", "reason"},
	)

	// order totals
	OrderTotalQuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_total_quotes_total",
			Help: "Total number of order total quotes",
		},
		[]string{"order_type"},
	)

	// websocket
	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
	WebSocketDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_publish_drops_total",
			Help: "Messages dropped because a client or the hub buffer was full",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	prometheus.MustRegister(DepthAggregationsTotal)
	prometheus.MustRegister(DepthAggregationDuration)
	prometheus.MustRegister(CrossedBooksTotal)

	prometheus.MustRegister(FeedFetchesTotal)
	prometheus.MustRegister(FeedEntriesDroppedTotal)

	prometheus.MustRegister(OrderTotalQuotesTotal)

	prometheus.MustRegister(WebSocketClients)
	prometheus.MustRegister(WebSocketDropsTotal)
}

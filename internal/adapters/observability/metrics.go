package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ratings", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ratings", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ratings", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	FilesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ratings", Name: "files_total", Help: "Review files seen by the loader."},
		[]string{"status"}, // status: loaded|skipped
	)
	RowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ratings", Name: "rows_total", Help: "Review rows seen by the loader."},
		[]string{"outcome"}, // outcome: kept|dropped
	)
	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ratings", Name: "load_duration_seconds",
			Help:    "Time to load and normalize all review files.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Serve exposes /metrics on its own listener. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, CacheEvents, FilesProcessed, RowsProcessed, LoadDuration)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveFile(status string) {
	FilesProcessed.WithLabelValues(status).Inc()
}

func ObserveRows(kept, dropped int) {
	RowsProcessed.WithLabelValues("kept").Add(float64(kept))
	RowsProcessed.WithLabelValues("dropped").Add(float64(dropped))
}

func ObserveLoad(d time.Duration) { LoadDuration.Observe(d.Seconds()) }

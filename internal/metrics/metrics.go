package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waybacktweets_fetch_runs_total",
		Help: "Total archive fetch runs",
	}, []string{"source"})
	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waybacktweets_fetch_errors_total",
		Help: "Total archive fetch errors",
	}, []string{"source"})
	FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "waybacktweets_fetch_duration_seconds",
		Help:    "Archive fetch duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	RecordsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waybacktweets_records_emitted_total",
		Help: "Total tweet records assembled",
	}, []string{"source"})
	RecordsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waybacktweets_records_dropped_total",
		Help: "Total snapshots dropped before emission",
	}, []string{"source", "reason"})
	EmbedLookups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waybacktweets_embed_lookups_total",
		Help: "Total oembed lookups attempted",
	})
	EmbedMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waybacktweets_embed_misses_total",
		Help: "Total oembed lookups that yielded nothing",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waybacktweets_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waybacktweets_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(FetchRuns, FetchErrors, FetchDuration,
		RecordsEmitted, RecordsDropped, EmbedLookups, EmbedMisses,
		CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveFetchDuration records a run duration.
func ObserveFetchDuration(start time.Time) {
	FetchDuration.Observe(time.Since(start).Seconds())
}

// IncDropped increments the drop counter for a source/reason pair.
func IncDropped(source, reason string) { RecordsDropped.WithLabelValues(source, reason).Inc() }

// IncCommandRun and IncCommandError track CLI command outcomes.
func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingest metrics
	LinesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pvm_lines_read_total",
			Help: "Total number of input lines read",
		},
	)

	ParseErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pvm_parse_errors_total",
			Help: "Total number of lines discarded due to deserialisation errors",
		},
	)

	RecordsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pvm_records_applied_total",
			Help: "Total number of records applied to the provenance graph",
		},
	)

	// Transaction metrics
	TransactionsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pvm_transactions_committed_total",
			Help: "Total number of committed transactions",
		},
	)

	TransactionsRolledBack = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvm_transactions_rolled_back_total",
			Help: "Total number of rolled-back transactions by cause",
		},
		[]string{"cause"},
	)

	TransactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pvm_transaction_duration_seconds",
			Help:    "Time taken to apply one record inside a transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Graph metrics
	NodesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvm_nodes_created_total",
			Help: "Total number of graph nodes created by PVM data type",
		},
		[]string{"pvm_type"},
	)

	RelsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvm_rels_created_total",
			Help: "Total number of relationships created by kind",
		},
		[]string{"kind"},
	)

	// View metrics
	EventsBroadcast = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pvm_events_broadcast_total",
			Help: "Total number of change events fanned out to views",
		},
	)

	ViewInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pvm_view_instances",
			Help: "Number of running view instances",
		},
	)
)

func init() {
	prometheus.MustRegister(LinesRead)
	prometheus.MustRegister(ParseErrors)
	prometheus.MustRegister(RecordsApplied)
	prometheus.MustRegister(TransactionsCommitted)
	prometheus.MustRegister(TransactionsRolledBack)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(NodesCreated)
	prometheus.MustRegister(RelsCreated)
	prometheus.MustRegister(EventsBroadcast)
	prometheus.MustRegister(ViewInstances)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

const namespace = "spreadscan"

// Scan 扫描指标，实现 port.ScanMetrics
type Scan struct {
	scans         *prometheus.CounterVec
	duration      prometheus.Histogram
	fetchFailures prometheus.Counter
	quotes        prometheus.Counter
	spreads       prometheus.Gauge
}

// NewScan registers the scan collectors on reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func NewScan(reg *prometheus.Registry) (*Scan, *prometheus.Registry) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := &Scan{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan cycles by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a scan cycle.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 60, 120},
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_fetch_failures_total",
			Help:      "Per-instrument ticker fetches that failed.",
		}),
		quotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_ingested_total",
			Help:      "Quotes accepted into pair buckets.",
		}),
		spreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spreads_found",
			Help:      "Results on the latest evaluated board.",
		}),
	}
	reg.MustRegister(m.scans, m.duration, m.fetchFailures, m.quotes, m.spreads)
	return m, reg
}

func (m *Scan) ScanFinished(outcome port.ScanOutcome, took time.Duration) {
	m.scans.WithLabelValues(string(outcome)).Inc()
	if outcome == port.OutcomeCompleted {
		m.duration.Observe(took.Seconds())
	}
}

func (m *Scan) QuoteFetchFailed() { m.fetchFailures.Inc() }

func (m *Scan) QuotesIngested(n int) { m.quotes.Add(float64(n)) }

func (m *Scan) SpreadsFound(n int) { m.spreads.Set(float64(n)) }

var _ port.ScanMetrics = (*Scan)(nil)

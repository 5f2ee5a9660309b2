package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func TestScanMetrics(t *testing.T) {
	m, reg := NewScan(prometheus.NewRegistry())

	m.ScanFinished(port.OutcomeCompleted, 3*time.Second)
	m.ScanFinished(port.OutcomeAborted, time.Second)
	m.ScanFinished(port.OutcomeCompleted, time.Second)
	m.QuoteFetchFailed()
	m.QuotesIngested(12)
	m.SpreadsFound(4)

	mfs := gather(t, reg)

	scans := mfs["spreadscan_scans_total"]
	if scans == nil {
		t.Fatal("scans_total missing")
	}
	byOutcome := map[string]float64{}
	for _, metric := range scans.GetMetric() {
		byOutcome[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	if byOutcome["completed"] != 2 || byOutcome["aborted"] != 1 {
		t.Errorf("unexpected scan counts: %v", byOutcome)
	}

	if h := mfs["spreadscan_scan_duration_seconds"].GetMetric()[0].GetHistogram(); h.GetSampleCount() != 2 {
		t.Errorf("only completed scans are timed, got %d samples", h.GetSampleCount())
	}
	if v := mfs["spreadscan_quotes_ingested_total"].GetMetric()[0].GetCounter().GetValue(); v != 12 {
		t.Errorf("quotes_ingested_total = %v", v)
	}
	if v := mfs["spreadscan_spreads_found"].GetMetric()[0].GetGauge().GetValue(); v != 4 {
		t.Errorf("spreads_found = %v", v)
	}
}

func TestNewScanCreatesRegistry(t *testing.T) {
	_, reg := NewScan(nil)
	if _, ok := gather(t, reg)["go_goroutines"]; !ok {
		t.Error("default registry should carry go collectors")
	}
}

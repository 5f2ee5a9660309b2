package port

import "time"

type ScanOutcome string

const (
	OutcomeCompleted ScanOutcome = "completed"
	OutcomeAborted   ScanOutcome = "aborted"
	OutcomeFailed    ScanOutcome = "failed"
)

// ScanMetrics receives scan counters. Implementations must be safe for concurrent use.
type ScanMetrics interface {
	ScanFinished(outcome ScanOutcome, took time.Duration)
	QuoteFetchFailed()
	QuotesIngested(n int)
	SpreadsFound(n int)
}

type NoopMetrics struct{}

func (NoopMetrics) ScanFinished(ScanOutcome, time.Duration) {}
func (NoopMetrics) QuoteFetchFailed()                       {}
func (NoopMetrics) QuotesIngested(int)                      {}
func (NoopMetrics) SpreadsFound(int)                        {}

package scanner

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
	"github.com/smart845/QuantumTrader/internal/domain/service"
)

// Pipeline runs one cycle: universe -> ingest -> aggregate -> evaluate -> rank.
type Pipeline struct {
	universe  port.UniverseProvider
	ingestor  *Ingestor
	evaluator *service.Evaluator
	metrics   port.ScanMetrics
	limit     int
}

func NewPipeline(universe port.UniverseProvider, ingestor *Ingestor, evaluator *service.Evaluator, metrics port.ScanMetrics, limit int) *Pipeline {
	if metrics == nil {
		metrics = port.NoopMetrics{}
	}
	return &Pipeline{
		universe:  universe,
		ingestor:  ingestor,
		evaluator: evaluator,
		metrics:   metrics,
		limit:     limit,
	}
}

// Scan returns the ranked results, possibly empty. Errors are either
// ErrCancelledScan or a *UniverseFetchError.
func (p *Pipeline) Scan(ctx context.Context, sess *Session) ([]model.SpreadResult, error) {
	if sess.Cancelled() {
		return nil, ErrCancelledScan
	}

	instruments, err := p.universe.ListTopInstruments(ctx, p.limit)
	if sess.Cancelled() {
		return nil, ErrCancelledScan
	}
	if err != nil {
		return nil, &UniverseFetchError{Err: err}
	}
	if len(instruments) == 0 {
		return nil, &UniverseFetchError{Err: ErrEmptyUniverse}
	}

	agg := service.NewAggregator()
	if err := p.ingestor.Run(ctx, sess, instruments, agg); err != nil {
		return nil, err
	}

	groups := agg.Eligible()
	results := make([]model.SpreadResult, 0, len(groups))
	for _, g := range groups {
		if r := p.evaluator.Evaluate(g); r != nil {
			results = append(results, *r)
		}
	}
	ranked := service.Rank(results)
	p.metrics.SpreadsFound(len(ranked))

	log.Debug().
		Str("session", sess.ID).
		Int("instruments", len(instruments)).
		Int("pairs", agg.Len()).
		Int("eligible", len(groups)).
		Int("spreads", len(ranked)).
		Msg("scan evaluated")

	return ranked, nil
}

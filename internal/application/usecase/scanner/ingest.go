package scanner

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
	"github.com/smart845/QuantumTrader/internal/domain/service"
)

// Absorber receives accepted quotes in completion order.
type Absorber interface {
	Absorb(q model.RawQuote)
}

// Ingestor fetches venue quotes in fixed-size batches. Batches never overlap;
// fetches inside one batch run concurrently.
type Ingestor struct {
	source     port.QuoteSource
	classifier service.VenueClassifier
	metrics    port.ScanMetrics
	width      int
	delay      time.Duration
	allowed    map[string]struct{}
}

type IngestorDeps struct {
	Source          port.QuoteSource
	Classifier      service.VenueClassifier
	Metrics         port.ScanMetrics
	Width           int
	Delay           time.Duration
	QuoteCurrencies []string
}

func NewIngestor(deps IngestorDeps) *Ingestor {
	if deps.Width <= 0 {
		deps.Width = 1
	}
	if deps.Classifier == nil {
		deps.Classifier = service.NewHintClassifier(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = port.NoopMetrics{}
	}
	allowed := make(map[string]struct{}, len(deps.QuoteCurrencies))
	for _, q := range deps.QuoteCurrencies {
		if u := strings.ToUpper(strings.TrimSpace(q)); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return &Ingestor{
		source:     deps.Source,
		classifier: deps.Classifier,
		metrics:    deps.Metrics,
		width:      deps.Width,
		delay:      deps.Delay,
		allowed:    allowed,
	}
}

type fetched struct {
	instrumentID string
	tickers      []port.Ticker
}

// Run ingests every instrument into agg. It returns ErrCancelledScan as soon
// as the session is observed cancelled; no further batches are issued.
func (in *Ingestor) Run(ctx context.Context, sess *Session, instruments []model.Instrument, agg Absorber) error {
	for start := 0; start < len(instruments); start += in.width {
		if sess.Cancelled() {
			return ErrCancelledScan
		}
		end := min(start+in.width, len(instruments))
		batch := instruments[start:end]

		done := in.fetchBatch(ctx, batch)

		// 本批次结果到达后再检查一次：已取消的会话不再写入
		if sess.Cancelled() {
			return ErrCancelledScan
		}
		accepted := 0
		for _, f := range done {
			for _, t := range f.tickers {
				q, ok := in.normalize(f.instrumentID, t)
				if !ok {
					continue
				}
				agg.Absorb(q)
				accepted++
			}
		}
		in.metrics.QuotesIngested(accepted)

		log.Debug().
			Str("session", sess.ID).
			Int("batch_from", start).
			Int("batch_size", len(batch)).
			Int("quotes", accepted).
			Msg("batch ingested")

		if err := in.pause(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// fetchBatch waits for every fetch to settle. Failures are swallowed and
// contribute nothing; successes are returned in completion order.
func (in *Ingestor) fetchBatch(ctx context.Context, batch []model.Instrument) []fetched {
	results := make(chan fetched, len(batch))
	var g errgroup.Group
	for _, inst := range batch {
		inst := inst
		g.Go(func() error {
			tickers, err := in.source.ListTickers(ctx, inst.ID)
			if err != nil {
				in.metrics.QuoteFetchFailed()
				log.Debug().Err(err).Str("instrument", inst.ID).Msg("quote fetch failed")
				return nil
			}
			results <- fetched{instrumentID: inst.ID, tickers: tickers}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	out := make([]fetched, 0, len(batch))
	for f := range results {
		out = append(out, f)
	}
	return out
}

// pause is the inter-batch suspension point.
func (in *Ingestor) pause(ctx context.Context, sess *Session) error {
	if in.delay > 0 {
		t := time.NewTimer(in.delay)
		select {
		case <-t.C:
		case <-sess.Done():
			t.Stop()
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	if sess.Cancelled() {
		return ErrCancelledScan
	}
	return nil
}

// normalize drops malformed entries: quote currency outside the allow-list,
// empty base, or a price that is not a positive finite number.
func (in *Ingestor) normalize(instrumentID string, t port.Ticker) (model.RawQuote, bool) {
	quote := strings.ToUpper(strings.TrimSpace(t.Target))
	if _, ok := in.allowed[quote]; !ok {
		return model.RawQuote{}, false
	}
	base := strings.ToUpper(strings.TrimSpace(t.Base))
	if base == "" {
		return model.RawQuote{}, false
	}

	var price float64
	switch {
	case t.Last != nil:
		price = *t.Last
	case t.ConvertedLastUSD != nil:
		price = *t.ConvertedLastUSD
	default:
		return model.RawQuote{}, false
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return model.RawQuote{}, false
	}

	venue := strings.TrimSpace(t.MarketName)
	if venue == "" {
		venue = "—"
	}
	return model.RawQuote{
		InstrumentID:  instrumentID,
		Base:          base,
		Venue:         venue,
		VenueKind:     in.classifier.Classify(t.MarketName, t.MarketIdentifier),
		QuoteCurrency: quote,
		Price:         price,
	}, true
}

package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

var hundred = decimal.NewFromInt(100)

// SpreadPercent returns (max-min)/min*100 in decimal so threshold comparisons
// are not skewed by binary float rounding.
func SpreadPercent(minPrice, maxPrice float64) decimal.Decimal {
	lo := decimal.NewFromFloat(minPrice)
	hi := decimal.NewFromFloat(maxPrice)
	return hi.Sub(lo).Div(lo).Mul(hundred)
}

// Evaluator 计算单个交易对的最大价差，低于阈值返回 nil
type Evaluator struct {
	minSpread decimal.Decimal
	now       func() time.Time
}

func NewEvaluator(minSpreadPct float64) *Evaluator {
	return &Evaluator{
		minSpread: decimal.NewFromFloat(minSpreadPct),
		now:       time.Now,
	}
}

// Evaluate scans the group once, keeping the first min and first max quote.
func (e *Evaluator) Evaluate(g model.PairGroup) *model.SpreadResult {
	if len(g.Quotes) < 2 {
		return nil
	}

	lo, hi := g.Quotes[0], g.Quotes[0]
	for _, q := range g.Quotes[1:] {
		if q.Price < lo.Price {
			lo = q
		}
		if q.Price > hi.Price {
			hi = q
		}
	}
	if lo.Price <= 0 {
		return nil
	}

	pct := SpreadPercent(lo.Price, hi.Price)
	if pct.LessThan(e.minSpread) {
		return nil
	}

	p := pct.InexactFloat64()
	return &model.SpreadResult{
		Pair:          g.Key.Label(),
		TopVenue:      VenueLabel(hi),
		TopPrice:      hi.Price,
		SpreadPercent: p,
		Tier:          model.TierFor(p),
		ComputedAt:    e.now(),
	}
}

// VenueLabel: "Binance linear", "Uniswap V3 (Ethereum) dex".
func VenueLabel(q model.RawQuote) string {
	if q.VenueKind == model.VenueDEX {
		return q.Venue + " dex"
	}
	return q.Venue + " linear"
}

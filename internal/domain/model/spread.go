package model

import "time"

// ========== Universe ==========

// Instrument 市值排行中的一个币种
type Instrument struct {
	ID     string `json:"id"`     // provider id, e.g. "bitcoin"
	Symbol string `json:"symbol"` // upper-case ticker, e.g. "BTC"
}

// ========== Quotes ==========

type VenueKind string

const (
	VenueCEX VenueKind = "CEX"
	VenueDEX VenueKind = "DEX"
)

// RawQuote 单个交易场所的最新成交价
type RawQuote struct {
	InstrumentID  string    `json:"instrument_id"`
	Base          string    `json:"base"`
	Venue         string    `json:"venue"`
	VenueKind     VenueKind `json:"venue_kind"`
	QuoteCurrency string    `json:"quote_currency"`
	Price         float64   `json:"price"`
}

// PairKey identifies a pair bucket within one scan cycle.
type PairKey struct {
	Base  string
	Quote string
}

// Label renders the key the way venues print pairs: BTCUSDT.
func (k PairKey) Label() string { return k.Base + k.Quote }

// PairGroup 同一交易对在各场所的报价，按到达顺序
type PairGroup struct {
	Key    PairKey
	Quotes []RawQuote
}

// DistinctVenues counts venues by name.
func (g *PairGroup) DistinctVenues() int {
	seen := make(map[string]struct{}, len(g.Quotes))
	for _, q := range g.Quotes {
		seen[q.Venue] = struct{}{}
	}
	return len(seen)
}

// ========== Results ==========

// Tier 价差分级（控制台/前端着色）
type Tier int

const (
	TierLow    Tier = iota // < 3%
	TierMedium             // 3% .. 5%
	TierHigh               // > 5%
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// TierFor buckets a spread percentage.
func TierFor(pct float64) Tier {
	switch {
	case pct > 5:
		return TierHigh
	case pct >= 3:
		return TierMedium
	default:
		return TierLow
	}
}

// SpreadResult 一个交易对的最大价差
type SpreadResult struct {
	Pair          string    `json:"pair"`
	TopVenue      string    `json:"top_venue"`
	TopPrice      float64   `json:"top_price"`
	SpreadPercent float64   `json:"spread_pct"`
	Tier          Tier      `json:"tier"`
	ComputedAt    time.Time `json:"computed_at"`
}

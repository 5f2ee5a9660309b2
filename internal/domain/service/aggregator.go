package service

import "github.com/smart845/QuantumTrader/internal/domain/model"

// Aggregator groups quotes into pair buckets for one scan cycle.
// Not safe for concurrent use; the ingestor absorbs from a single goroutine.
type Aggregator struct {
	order  []model.PairKey
	groups map[model.PairKey]*model.PairGroup
}

func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[model.PairKey]*model.PairGroup)}
}

// Absorb appends q to its bucket. Quotes are never removed within a cycle.
func (a *Aggregator) Absorb(q model.RawQuote) {
	key := model.PairKey{Base: q.Base, Quote: q.QuoteCurrency}
	g := a.groups[key]
	if g == nil {
		g = &model.PairGroup{Key: key}
		a.groups[key] = g
		a.order = append(a.order, key)
	}
	g.Quotes = append(g.Quotes, q)
}

// Len returns the number of buckets, eligible or not.
func (a *Aggregator) Len() int { return len(a.groups) }

// Eligible returns buckets quoted by at least two distinct venues,
// in first-seen order.
func (a *Aggregator) Eligible() []model.PairGroup {
	out := make([]model.PairGroup, 0, len(a.order))
	for _, k := range a.order {
		g := a.groups[k]
		if g.DistinctVenues() < 2 {
			continue
		}
		out = append(out, *g)
	}
	return out
}

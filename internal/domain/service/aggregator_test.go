package service

import (
	"sort"
	"testing"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

func quote(base, quoteCcy, venue string, price float64) model.RawQuote {
	return model.RawQuote{Base: base, QuoteCurrency: quoteCcy, Venue: venue, VenueKind: model.VenueCEX, Price: price}
}

func TestAggregatorDropsSingleVenueGroups(t *testing.T) {
	agg := NewAggregator()
	agg.Absorb(quote("X", "USDT", "V1", 100))
	agg.Absorb(quote("X", "USDT", "V2", 103))
	agg.Absorb(quote("Y", "USDT", "V1", 50))
	agg.Absorb(quote("Z", "USDT", "V1", 10))
	agg.Absorb(quote("Z", "USDT", "V1", 11)) // same venue twice

	got := agg.Eligible()
	if len(got) != 1 {
		t.Fatalf("expected 1 eligible group, got %d", len(got))
	}
	if got[0].Key.Label() != "XUSDT" {
		t.Errorf("unexpected group %s", got[0].Key.Label())
	}
	if agg.Len() != 3 {
		t.Errorf("expected 3 buckets, got %d", agg.Len())
	}
}

func TestAggregatorSeparatesQuoteCurrencies(t *testing.T) {
	agg := NewAggregator()
	agg.Absorb(quote("BTC", "USDT", "A", 100))
	agg.Absorb(quote("BTC", "USDC", "B", 101))

	if n := len(agg.Eligible()); n != 0 {
		t.Errorf("USDT and USDC must not share a bucket, got %d eligible", n)
	}
}

func TestAggregationOrderIndependent(t *testing.T) {
	quotes := []model.RawQuote{
		quote("BTC", "USDT", "A", 100),
		quote("BTC", "USDT", "B", 104),
		quote("ETH", "USDT", "A", 10),
		quote("ETH", "USDT", "C", 10.5),
		quote("BTC", "USDT", "C", 98),
		quote("SOL", "USDC", "A", 1),
		quote("SOL", "USDC", "B", 1.001),
	}
	reversed := make([]model.RawQuote, len(quotes))
	for i, q := range quotes {
		reversed[len(quotes)-1-i] = q
	}

	run := func(in []model.RawQuote) []string {
		agg := NewAggregator()
		for _, q := range in {
			agg.Absorb(q)
		}
		ev := NewEvaluator(1.0)
		var out []string
		for _, g := range agg.Eligible() {
			if r := ev.Evaluate(g); r != nil {
				out = append(out, r.Pair+"|"+r.TopVenue)
			}
		}
		sort.Strings(out)
		return out
	}

	a, b := run(quotes), run(reversed)
	if len(a) != 2 || len(a) != len(b) {
		t.Fatalf("expected 2 results each, got %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("order dependence: %v vs %v", a, b)
		}
	}
}

package service

import (
	"testing"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

func TestHintClassifier(t *testing.T) {
	c := NewHintClassifier(nil)
	cases := []struct {
		name, id string
		want     model.VenueKind
	}{
		{"Binance", "binance", model.VenueCEX},
		{"Uniswap V3 (Ethereum)", "uniswap_v3", model.VenueDEX},
		{"PancakeSwap (v2)", "pancakeswap_new", model.VenueDEX},
		{"Some Venue", "raydium", model.VenueDEX},
		{"OKX", "okex", model.VenueCEX},
		{"", "", model.VenueCEX},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.name, tc.id); got != tc.want {
			t.Errorf("Classify(%q, %q) = %s, want %s", tc.name, tc.id, got, tc.want)
		}
	}
}

func TestHintClassifierCustomHints(t *testing.T) {
	c := NewHintClassifier([]string{" Orca "})
	if got := c.Classify("Orca", "orca"); got != model.VenueDEX {
		t.Errorf("custom hint not applied, got %s", got)
	}
	if got := c.Classify("Uniswap", "uniswap"); got != model.VenueCEX {
		t.Errorf("default hints must be replaced, got %s", got)
	}
}

package service

import (
	"testing"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

func TestRankDescending(t *testing.T) {
	in := []model.SpreadResult{
		{Pair: "AUSDT", SpreadPercent: 1.5},
		{Pair: "BUSDT", SpreadPercent: 7},
		{Pair: "CUSDT", SpreadPercent: 3.2},
		{Pair: "DUSDT", SpreadPercent: 3.2},
		{Pair: "EUSDT", SpreadPercent: 12},
	}
	out := Rank(in)
	for i := 1; i < len(out); i++ {
		if out[i-1].SpreadPercent < out[i].SpreadPercent {
			t.Fatalf("not sorted at %d: %v < %v", i, out[i-1].SpreadPercent, out[i].SpreadPercent)
		}
	}
	if out[2].Pair != "CUSDT" || out[3].Pair != "DUSDT" {
		t.Errorf("tie-break by pair label failed: %s, %s", out[2].Pair, out[3].Pair)
	}
	if in[0].Pair != "AUSDT" {
		t.Error("input slice must not be reordered")
	}
}

func TestRankEmpty(t *testing.T) {
	if out := Rank(nil); len(out) != 0 {
		t.Errorf("expected empty, got %d", len(out))
	}
}

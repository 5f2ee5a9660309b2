package service

import (
	"sort"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

// Rank sorts by spread desc; equal spreads fall back to pair then venue
// label ascending so repeated scans print in a stable order.
func Rank(results []model.SpreadResult) []model.SpreadResult {
	out := make([]model.SpreadResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SpreadPercent != b.SpreadPercent {
			return a.SpreadPercent > b.SpreadPercent
		}
		if a.Pair != b.Pair {
			return a.Pair < b.Pair
		}
		return a.TopVenue < b.TopVenue
	})
	return out
}

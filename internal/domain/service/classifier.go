package service

import (
	"strings"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

// DefaultDEXHints are name fragments of well-known decentralized venues.
var DefaultDEXHints = []string{
	"swap", "dex", "curve", "balancer", "uniswap", "sushiswap",
	"pancake", "raydium", "jupiter", "quickswap", "dydx",
}

// VenueClassifier labels a venue as CEX or DEX. Best effort, display only.
type VenueClassifier interface {
	Classify(name, identifier string) model.VenueKind
}

// HintClassifier 子串匹配；未命中的一律视为 CEX
type HintClassifier struct {
	hints []string
}

func NewHintClassifier(hints []string) *HintClassifier {
	if len(hints) == 0 {
		hints = DefaultDEXHints
	}
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return &HintClassifier{hints: out}
}

func (c *HintClassifier) Classify(name, identifier string) model.VenueKind {
	n := strings.ToLower(name)
	id := strings.ToLower(identifier)
	for _, h := range c.hints {
		if strings.Contains(n, h) || strings.Contains(id, h) {
			return model.VenueDEX
		}
	}
	return model.VenueCEX
}

// ClassifierFunc adapts a plain predicate.
type ClassifierFunc func(name, identifier string) model.VenueKind

func (f ClassifierFunc) Classify(name, identifier string) model.VenueKind { return f(name, identifier) }

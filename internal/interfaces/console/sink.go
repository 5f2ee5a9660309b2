package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiOrange = "\033[38;5;208m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
)

func colorize(s, color string) string {
	return color + s + ansiReset
}

func tierColor(t model.Tier) string {
	switch t {
	case model.TierHigh:
		return ansiRed
	case model.TierMedium:
		return ansiOrange
	default:
		return ansiYellow
	}
}

// Sink 把看板渲染成终端表格
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink() *Sink { return NewSinkTo(os.Stdout) }

func NewSinkTo(w io.Writer) *Sink { return &Sink{out: w} }

func (s *Sink) WriteBoard(ctx context.Context, b port.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, Render(b))
	return err
}

func (s *Sink) WriteError(ctx context.Context, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, werr := fmt.Fprintf(s.out, "%s %s\n", colorize("[SPREADS]", ansiDim), colorize("scan failed: "+err.Error(), ansiRed))
	return werr
}

// Render formats one board. Rows are printed in board order.
func Render(b port.Board) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s updated %s  (%d)\n",
		colorize("[SPREADS]", ansiDim), b.UpdatedAt.Format("2006-01-02 15:04:05"), len(b.Results))

	if len(b.Results) == 0 {
		sb.WriteString(colorize("  no spreads above threshold\n", ansiDim))
		return sb.String()
	}

	fmt.Fprintf(&sb, "  %-3s %-14s %-26s %16s %9s\n", "#", "PAIR", "VENUE", "PRICE", "SPREAD")
	for i, r := range b.Results {
		pct := fmt.Sprintf("%+.2f%%", r.SpreadPercent)
		fmt.Fprintf(&sb, "  %-3d %-14s %-26s %16.4f %s\n",
			i+1, r.Pair, r.TopVenue, r.TopPrice, colorize(fmt.Sprintf("%9s", pct), tierColor(r.Tier)))
	}
	return sb.String()
}

var _ port.Sink = (*Sink)(nil)

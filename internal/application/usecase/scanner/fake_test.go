package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
)

var errUpstream = errors.New("upstream 503")

type call struct {
	id         string
	start, end time.Time
}

type fakeMarket struct {
	mu          sync.Mutex
	universe    []model.Instrument
	universeErr error
	tickers     map[string][]port.Ticker
	failing     map[string]bool
	latency     time.Duration

	// blockFirst holds the very first ListTickers call until release is closed.
	blockFirst bool
	entered    chan struct{}
	release    chan struct{}
	onFetch    func(id string)

	inflight    int
	maxInflight int
	calls       []call
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		tickers: make(map[string][]port.Ticker),
		failing: make(map[string]bool),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *fakeMarket) ListTopInstruments(ctx context.Context, limit int) ([]model.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.universeErr != nil {
		return nil, f.universeErr
	}
	if limit < len(f.universe) {
		return f.universe[:limit], nil
	}
	return f.universe, nil
}

func (f *fakeMarket) ListTickers(ctx context.Context, id string) ([]port.Ticker, error) {
	f.mu.Lock()
	block := f.blockFirst
	f.blockFirst = false
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	started := time.Now()
	hook := f.onFetch
	f.mu.Unlock()

	if block {
		close(f.entered)
		<-f.release
	}
	if hook != nil {
		hook(id)
	}
	if f.latency > 0 {
		time.Sleep(f.latency)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	f.calls = append(f.calls, call{id: id, start: started, end: time.Now()})
	if f.failing[id] {
		return nil, errUpstream
	}
	return f.tickers[id], nil
}

func (f *fakeMarket) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func px(v float64) *float64 { return &v }

func tick(base, target, venue string, price float64) port.Ticker {
	return port.Ticker{Base: base, Target: target, Last: px(price), MarketName: venue, MarketIdentifier: venue}
}

// scenarioA: X quoted on V1/V2 at 100/103, Y only on V1.
func scenarioA() *fakeMarket {
	f := newFakeMarket()
	f.universe = []model.Instrument{{ID: "x", Symbol: "X"}, {ID: "y", Symbol: "Y"}}
	f.tickers["x"] = []port.Ticker{tick("X", "USDT", "V1", 100), tick("X", "USDT", "V2", 103)}
	f.tickers["y"] = []port.Ticker{tick("Y", "USDT", "V1", 50)}
	return f
}

func testConfig() Config {
	return Config{
		TopLimit:        40,
		Concurrency:     3,
		BatchDelay:      time.Millisecond,
		MinSpreadPct:    1.0,
		RescanInterval:  time.Hour,
		QuoteCurrencies: []string{"USDT", "USDC"},
	}
}

type recorder struct {
	boards chan port.Board
	errs   chan error
}

func newRecorder() *recorder {
	return &recorder{boards: make(chan port.Board, 16), errs: make(chan error, 16)}
}

func (r *recorder) onResult(b port.Board) { r.boards <- b }
func (r *recorder) onError(err error)     { r.errs <- err }

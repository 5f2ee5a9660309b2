package svc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
	"github.com/smart845/QuantumTrader/internal/infrastructure/config"
	sqliterepo "github.com/smart845/QuantumTrader/internal/infrastructure/storage/sqlite"
)

type stubMarket struct{}

func (stubMarket) ListTopInstruments(ctx context.Context, limit int) ([]model.Instrument, error) {
	return []model.Instrument{{ID: "bitcoin", Symbol: "BTC"}}, nil
}

func (stubMarket) ListTickers(ctx context.Context, id string) ([]port.Ticker, error) {
	p1, p2 := 100.0, 110.0
	return []port.Ticker{
		{Base: "BTC", Target: "USDT", Last: &p1, MarketName: "Kraken", MarketIdentifier: "kraken"},
		{Base: "BTC", Target: "USDT", Last: &p2, MarketName: "Binance", MarketIdentifier: "binance"},
	}, nil
}

func mustParse(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(doc)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestServiceContextEndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "board.db")
	cfg := mustParse(t, fmt.Sprintf(`
[scan]
batch_delay_ms = 1
rescan_interval_sec = 3600

[console]
enabled = false

[sqlite]
enabled = true
path = '%s'
`, dbPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc, err := NewWithMarket(ctx, cfg, stubMarket{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sc.Start(ctx)

	deadline := time.Now().Add(3 * time.Second)
	var board port.Board
	for {
		b, ok, _ := sc.Boards.Latest()
		if ok {
			board = b
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no board published")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(board.Results) != 1 || board.Results[0].Pair != "BTCUSDT" || board.Results[0].SpreadPercent != 10 {
		t.Fatalf("unexpected board %+v", board)
	}
	if board.Results[0].TopVenue != "Binance linear" {
		t.Errorf("unexpected venue label %q", board.Results[0].TopVenue)
	}
	if err := sc.Close(); err != nil {
		t.Fatal(err)
	}

	// the board survives a restart through the store
	repo, err := sqliterepo.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	stored, err := repo.LatestBoard(context.Background())
	if err != nil || stored == nil || stored.SessionID != board.SessionID {
		t.Errorf("stored board mismatch: %+v err=%v", stored, err)
	}
}

func TestNoSinksEnabled(t *testing.T) {
	cfg := mustParse(t, "[console]\nenabled = false\n")
	_, err := NewWithMarket(context.Background(), cfg, stubMarket{})
	if !errors.Is(err, ErrNoSinksEnabled) {
		t.Errorf("expected ErrNoSinksEnabled, got %v", err)
	}
}

func TestStorageInitFailure(t *testing.T) {
	cfg := mustParse(t, "[sqlite]\nenabled = true\npath = '/dev/null/board.db'\n")
	_, err := NewWithMarket(context.Background(), cfg, stubMarket{})
	if !errors.Is(err, ErrStorageInitFailed) {
		t.Errorf("expected ErrStorageInitFailed, got %v", err)
	}
}

func TestScannerDepsFromConfig(t *testing.T) {
	cfg := mustParse(t, "[scan]\ntop_limit = 7\nstart_delay_ms = 200\n")
	sc := &ServiceContext{Config: cfg, market: stubMarket{}}
	deps := sc.BuildScannerServiceDeps()
	if deps.Config.TopLimit != 7 || deps.Config.StartDelay != 200*time.Millisecond {
		t.Errorf("unexpected scanner config %+v", deps.Config)
	}
	if deps.Classifier.Classify("Uniswap V3", "uniswap_v3") != model.VenueDEX {
		t.Error("default DEX hints not applied")
	}
}

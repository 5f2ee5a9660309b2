package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

const storeTimeout = 5 * time.Second

// BoardService 扫描结果的唯一出口：缓存最新看板，写入存储并推送到各输出端
type BoardService struct {
	store port.BoardStore
	sinks []port.Sink

	mu      sync.RWMutex
	latest  *port.Board
	lastErr error
}

func NewBoardService(store port.BoardStore, sinks ...port.Sink) *BoardService {
	out := make([]port.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &BoardService{store: store, sinks: out}
}

// Restore loads the last good board from the store so consumers see it
// before the first scan of this process completes.
func (s *BoardService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	b, err := s.store.LatestBoard(ctx)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	s.mu.Lock()
	s.latest = b
	s.mu.Unlock()

	log.Info().Str("session", b.SessionID).Int("spreads", len(b.Results)).Msg("restored last board")
	s.fanout(ctx, *b)
	return nil
}

// OnResult matches scanner.ResultFunc.
func (s *BoardService) OnResult(b port.Board) {
	s.mu.Lock()
	s.latest = &b
	s.lastErr = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if s.store != nil {
		if err := s.store.ReplaceBoard(ctx, b); err != nil {
			log.Error().Err(err).Str("session", b.SessionID).Msg("save board failed")
		}
	}
	s.fanout(ctx, b)
}

// OnError matches scanner.ErrorFunc. The cached board is kept.
func (s *BoardService) OnError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	for _, sink := range s.sinks {
		if werr := sink.WriteError(ctx, err); werr != nil {
			log.Warn().Err(werr).Msg("sink write error failed")
		}
	}
}

// Latest returns the last good board, if any, and the error of the most
// recent failed cycle (nil after a completed one).
func (s *BoardService) Latest() (port.Board, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return port.Board{}, false, s.lastErr
	}
	return *s.latest, true, s.lastErr
}

func (s *BoardService) fanout(ctx context.Context, b port.Board) {
	for _, sink := range s.sinks {
		if err := sink.WriteBoard(ctx, b); err != nil {
			log.Warn().Err(err).Str("session", b.SessionID).Msg("sink write board failed")
		}
	}
}

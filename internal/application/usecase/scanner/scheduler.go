package scanner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/service"
)

type State int32

const (
	StateIdle State = iota
	StateScanning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// ResultFunc receives the ranked board of a completed scan.
type ResultFunc func(b port.Board)

// ErrorFunc receives cycle-fatal errors (*UniverseFetchError).
type ErrorFunc func(err error)

type Config struct {
	TopLimit        int
	Concurrency     int
	BatchDelay      time.Duration
	MinSpreadPct    float64
	RescanInterval  time.Duration
	StartDelay      time.Duration
	QuoteCurrencies []string
}

type ServiceDeps struct {
	Universe   port.UniverseProvider
	Quotes     port.QuoteSource
	Classifier service.VenueClassifier
	Metrics    port.ScanMetrics
	Config     Config
}

// Service builds scanner instances. Each Attach yields an independent
// instance with its own timer and at most one live session.
type Service struct {
	cfg      Config
	pipeline *Pipeline
	metrics  port.ScanMetrics
	now      func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	if deps.Metrics == nil {
		deps.Metrics = port.NoopMetrics{}
	}
	if deps.Config.RescanInterval <= 0 {
		deps.Config.RescanInterval = time.Minute
	}
	ing := NewIngestor(IngestorDeps{
		Source:          deps.Quotes,
		Classifier:      deps.Classifier,
		Metrics:         deps.Metrics,
		Width:           deps.Config.Concurrency,
		Delay:           deps.Config.BatchDelay,
		QuoteCurrencies: deps.Config.QuoteCurrencies,
	})
	ev := service.NewEvaluator(deps.Config.MinSpreadPct)
	return &Service{
		cfg:      deps.Config,
		pipeline: NewPipeline(deps.Universe, ing, ev, deps.Metrics, deps.Config.TopLimit),
		metrics:  deps.Metrics,
		now:      time.Now,
	}
}

// Handle is one attached scanner instance.
type Handle struct {
	svc      *Service
	onResult ResultFunc
	onError  ErrorFunc

	refresh  chan struct{}
	finished chan scanOutcome
	detach   chan struct{}
	stopped  chan struct{}
	once     sync.Once

	state atomic.Int32
	live  *Session // owned by the loop goroutine
}

type scanOutcome struct {
	sess    *Session
	board   port.Board
	err     error
	elapsed time.Duration
}

// Attach starts a scanner: first scan right away (after StartDelay), then
// every RescanInterval. Callbacks run on the scanner goroutine and must not
// call Detach.
func (s *Service) Attach(ctx context.Context, onResult ResultFunc, onError ErrorFunc) *Handle {
	if onResult == nil {
		onResult = func(port.Board) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	h := &Handle{
		svc:      s,
		onResult: onResult,
		onError:  onError,
		refresh:  make(chan struct{}, 1),
		finished: make(chan scanOutcome),
		detach:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go h.loop(ctx)
	log.Info().
		Int("top_limit", s.cfg.TopLimit).
		Int("concurrency", s.cfg.Concurrency).
		Dur("batch_delay", s.cfg.BatchDelay).
		Dur("rescan_interval", s.cfg.RescanInterval).
		Float64("min_spread_pct", s.cfg.MinSpreadPct).
		Msg("scanner attached")
	return h
}

// Detach stops the timer, cancels the live session and waits for the loop
// to exit. No callback fires after Detach returns.
func (s *Service) Detach(h *Handle) { h.Detach() }

// RefreshNow supersedes the current session with a fresh one.
func (s *Service) RefreshNow(h *Handle) { h.RefreshNow() }

func (h *Handle) Detach() {
	h.once.Do(func() { close(h.detach) })
	<-h.stopped
}

func (h *Handle) RefreshNow() {
	select {
	case h.refresh <- struct{}{}:
	default: // a refresh is already pending
	}
}

func (h *Handle) State() State { return State(h.state.Load()) }

// Done is closed once the scanner has stopped.
func (h *Handle) Done() <-chan struct{} { return h.stopped }

func (h *Handle) loop(ctx context.Context) {
	defer close(h.stopped)

	first := time.NewTimer(h.svc.cfg.StartDelay)
	defer first.Stop()
	ticker := time.NewTicker(h.svc.cfg.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.cancelLive()
			log.Info().Msg("scanner stopped: context done")
			return
		case <-h.detach:
			h.cancelLive()
			log.Info().Msg("scanner detached")
			return
		case <-first.C:
			h.begin(ctx, "attach")
		case <-ticker.C:
			h.begin(ctx, "timer")
		case <-h.refresh:
			h.begin(ctx, "manual")
		case out := <-h.finished:
			h.finish(out)
		}
	}
}

// begin enters Scanning with a new session, cancelling the previous one.
func (h *Handle) begin(ctx context.Context, trigger string) {
	if h.live != nil {
		log.Debug().Str("session", h.live.ID).Str("trigger", trigger).Msg("superseding live session")
		h.live.Cancel()
	}
	sess := newSession(h.svc.now())
	h.live = sess
	h.state.Store(int32(StateScanning))

	log.Debug().Str("session", sess.ID).Str("trigger", trigger).Msg("scan started")

	go func() {
		results, err := h.svc.pipeline.Scan(ctx, sess)
		out := scanOutcome{
			sess:    sess,
			err:     err,
			elapsed: h.svc.now().Sub(sess.StartedAt),
			board: port.Board{
				SessionID: sess.ID,
				UpdatedAt: h.svc.now(),
				Results:   results,
			},
		}
		select {
		case h.finished <- out:
		case <-h.stopped:
		}
	}()
}

func (h *Handle) finish(out scanOutcome) {
	// 过期会话：结果丢弃
	if out.sess != h.live || out.sess.Cancelled() {
		h.svc.metrics.ScanFinished(port.OutcomeAborted, out.elapsed)
		return
	}
	h.live = nil

	switch {
	case out.err == nil:
		h.state.Store(int32(StateCompleted))
		h.svc.metrics.ScanFinished(port.OutcomeCompleted, out.elapsed)
		log.Info().
			Str("session", out.sess.ID).
			Int("spreads", len(out.board.Results)).
			Dur("took", out.elapsed).
			Msg("scan completed")
		h.onResult(out.board)

	case errors.Is(out.err, ErrCancelledScan), errors.Is(out.err, context.Canceled):
		h.state.Store(int32(StateAborted))
		h.svc.metrics.ScanFinished(port.OutcomeAborted, out.elapsed)

	default:
		h.state.Store(int32(StateAborted))
		h.svc.metrics.ScanFinished(port.OutcomeFailed, out.elapsed)
		log.Warn().Err(out.err).Str("session", out.sess.ID).Msg("scan failed")
		h.onError(out.err)
	}
	h.state.Store(int32(StateIdle))
}

func (h *Handle) cancelLive() {
	if h.live != nil {
		h.live.Cancel()
		h.live = nil
	}
	h.state.Store(int32(StateIdle))
}

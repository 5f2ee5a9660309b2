package wsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

// BoardSource is the read side of the board publisher.
type BoardSource interface {
	Latest() (port.Board, bool, error)
}

type Server struct {
	hub      *Hub
	boards   BoardSource
	registry *prometheus.Registry
	refresh  func()
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, boards BoardSource, registry *prometheus.Registry, refresh func()) *Server {
	return &Server{
		hub:      hub,
		boards:   boards,
		registry: registry,
		refresh:  refresh,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler routes /ws, /board, /refresh, /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/board", s.handleBoard)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		}))
	}
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("feed upgrade failed")
		return
	}
	s.hub.serve(ws)
}

type boardResponse struct {
	Board     *port.Board `json:"board"`
	LastError string      `json:"last_error,omitempty"`
}

func (s *Server) handleBoard(w http.ResponseWriter, _ *http.Request) {
	var resp boardResponse
	if s.boards != nil {
		b, ok, err := s.boards.Latest()
		if ok {
			resp.Board = &b
		}
		if err != nil {
			resp.LastError = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if resp.Board == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.refresh != nil {
		s.refresh()
	}
	w.WriteHeader(http.StatusAccepted)
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (s *Server) Serve(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("feed server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("feed server error")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("feed server shutdown error")
		} else {
			log.Info().Msg("feed server stopped")
		}
	}()
}

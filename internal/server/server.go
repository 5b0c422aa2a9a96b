package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/slothmock/SlothFinanceTracker/internal/aggregator"
	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

// Config holds the HTTP listener settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8087,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server exposes the latest aggregation snapshot over HTTP and websocket.
// It implements aggregator.Notifier: each cycle pushes its data sets here,
// replacing the snapshot and fanning out one frame per data set.
type Server struct {
	cfg     Config
	router  *mux.Router
	httpSrv *http.Server
	metrics *Metrics
	hub     *Hub
	stateFn func() aggregator.State

	mu       sync.RWMutex
	holdings []domain.Holding
	wallet   []domain.Holding
	position []domain.DefiPosition
	totals   totalsSnapshot
}

type totalsSnapshot struct {
	TotalValue float64   `json:"total_value"`
	TotalFees  float64   `json:"total_fees"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func New(cfg Config, metrics *Metrics, stateFn func() aggregator.State) *Server {
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		metrics: metrics,
		hub:     NewHub(),
		stateFn: stateFn,
	}
	s.routes()
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestID, s.logging)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/portfolio", s.handlePortfolio).Methods(http.MethodGet)
	s.router.HandleFunc("/holdings", s.handleHoldings).Methods(http.MethodGet)
	s.router.HandleFunc("/wallet", s.handleWallet).Methods(http.MethodGet)
	s.router.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	s.router.HandleFunc("/totals", s.handleTotals).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.Handle("/ws", s.hub).Methods(http.MethodGet)
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// OnHoldingsUpdated implements aggregator.Notifier.
func (s *Server) OnHoldingsUpdated(holdings []domain.Holding) {
	s.mu.Lock()
	s.holdings = holdings
	s.mu.Unlock()
	s.hub.Broadcast(Frame{Type: "holdings", Data: holdings})
}

// OnWalletUpdated implements aggregator.Notifier.
func (s *Server) OnWalletUpdated(balances []domain.Holding) {
	s.mu.Lock()
	s.wallet = balances
	s.mu.Unlock()
	s.hub.Broadcast(Frame{Type: "wallet", Data: balances})
}

// OnPositionsUpdated implements aggregator.Notifier.
func (s *Server) OnPositionsUpdated(positions []domain.DefiPosition) {
	s.mu.Lock()
	s.position = positions
	s.mu.Unlock()
	s.hub.Broadcast(Frame{Type: "positions", Data: positions})
}

// OnTotalsUpdated implements aggregator.Notifier.
func (s *Server) OnTotalsUpdated(totalValue, totalFees float64) {
	snap := totalsSnapshot{TotalValue: totalValue, TotalFees: totalFees, UpdatedAt: time.Now()}
	s.mu.Lock()
	s.totals = snap
	s.mu.Unlock()
	s.hub.Broadcast(Frame{Type: "totals", Data: snap})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"ws_clients": s.hub.ClientCount(),
	}
	if s.stateFn != nil {
		status["cycle_state"] = s.stateFn()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := map[string]interface{}{
		"holdings":        s.holdings,
		"wallet_balances": s.wallet,
		"positions":       s.position,
		"totals":          s.totals,
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]domain.Holding, len(s.holdings))
	copy(out, s.holdings)
	s.mu.RUnlock()
	sortHoldingsParams(r, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]domain.Holding, len(s.wallet))
	copy(out, s.wallet)
	s.mu.RUnlock()
	sortHoldingsParams(r, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]domain.DefiPosition, len(s.position))
	copy(out, s.position)
	s.mu.RUnlock()
	if col := r.URL.Query().Get("sort"); col != "" {
		domain.SortPositions(out, col, r.URL.Query().Get("desc") == "true")
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.totals
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, snap)
}

func sortHoldingsParams(r *http.Request, holdings []domain.Holding) {
	if col := r.URL.Query().Get("sort"); col != "" {
		domain.SortHoldings(holdings, col, r.URL.Query().Get("desc") == "true")
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", w.Header().Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

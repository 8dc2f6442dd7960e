package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/metrics"
)

// Server is the read-only observer API. It serves snapshots from a Feed and
// never accepts orders.
type Server struct {
	feed    *Feed
	hub     *Hub
	metrics *metrics.Collector
	router  *mux.Router
	logger  *zap.Logger

	AllowedOrigins []string
}

func NewServer(feed *Feed, hub *Hub, m *metrics.Collector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		feed:           feed,
		hub:            hub,
		metrics:        m,
		router:         mux.NewRouter(),
		logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// read-only: anything but GET on a known path is 405
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", r.Method)
	})
	s.router.MethodNotAllowedHandler = methodNotAllowed

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = methodNotAllowed

	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/symbols", s.handleGetSymbols).Methods("GET")
	api.HandleFunc("/books/{symbol}", s.handleGetBook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/teams/{team}", s.handleGetTeam).Methods("GET")
	api.HandleFunc("/pnl", s.handleGetPnL).Methods("GET")

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves on addr until ctx ends
func (s *Server) Start(ctx context.Context, addr string) error {
	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api_server_starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status := s.feed.Status()
	if s.hub != nil {
		status.Observers = s.hub.Clients()
	}
	respondJSON(w, status)
}

func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.feed.Symbols())
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["symbol"]
	sym, err := s.feed.Lookup(raw)
	if errors.Is(err, market.ErrUnknownSymbol) {
		respondError(w, http.StatusNotFound, "orderbook not found", raw)
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid symbol", err.Error())
		return
	}
	book, ok := s.feed.Book(sym.String())
	if !ok {
		respondError(w, http.StatusNotFound, "orderbook not found", raw)
		return
	}
	respondJSON(w, book)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}
	respondJSON(w, s.feed.RecentTrades(limit))
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["team"]
	team, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid team", raw)
		return
	}
	info, ok := s.feed.Team(team)
	if !ok {
		respondError(w, http.StatusNotFound, "team not found", raw)
		return
	}
	respondJSON(w, info)
}

func (s *Server) handleGetPnL(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.feed.PnL())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Message: detail})
}

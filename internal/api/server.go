package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quickbuck/internal/config"
	"quickbuck/internal/engine"
)

type Server struct {
	cfg    config.Config
	log    *slog.Logger
	engine *engine.Engine
	store  engine.Store
	mux    *chi.Mux
}

func New(cfg config.Config, logger *slog.Logger, eng *engine.Engine, st engine.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		engine: eng,
		store:  st,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ticks/latest", s.handleLatestTick)
		r.Get("/stocks", s.handleStocksList)
		r.Get("/cryptos", s.handleCryptosList)
		r.Get("/stocks/{symbol}", s.handleInstrumentDetail)
		r.Get("/stocks/{symbol}/candles", s.handleInstrumentCandles)
		r.Get("/stocks/{symbol}/quote", s.handleInstrumentQuote)

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/admin/tick", s.handleTriggerTick)
		})
	})
}

// adminMiddleware gates the manual tick trigger. An empty configured token
// disables the endpoint entirely rather than leaving it open.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" || token != s.cfg.AdminToken {
			writeError(w, http.StatusUnauthorized, "missing or invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleTriggerTick(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.RunCycle(r.Context(), "manual")
	if err != nil {
		if errors.Is(err, engine.ErrCycleRunning) {
			writeError(w, http.StatusConflict, "another cycle is currently running")
			return
		}
		s.log.Error("manual tick failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatestTick(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.LatestTickRecord(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no ticks recorded yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStocksList(w http.ResponseWriter, r *http.Request) {
	s.listInstruments(w, r, engine.KindStock, "stocks")
}

func (s *Server) handleCryptosList(w http.ResponseWriter, r *http.Request) {
	s.listInstruments(w, r, engine.KindCrypto, "cryptos")
}

func (s *Server) listInstruments(w http.ResponseWriter, r *http.Request, kind engine.AssetKind, key string) {
	limit := queryInt(r, "limit", 100, 500)
	out, err := s.store.ListInstruments(r.Context(), kind, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{key: out})
}

func (s *Server) handleInstrumentDetail(w http.ResponseWriter, r *http.Request) {
	inst, err := s.store.InstrumentBySymbol(r.Context(), strings.ToUpper(chi.URLParam(r, "symbol")))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown symbol")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleInstrumentCandles(w http.ResponseWriter, r *http.Request) {
	inst, err := s.store.InstrumentBySymbol(r.Context(), strings.ToUpper(chi.URLParam(r, "symbol")))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown symbol")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	limit := queryInt(r, "limit", 60, 500)
	candles, err := s.store.RecentCandles(r.Context(), inst.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": inst.Symbol, "candles": candles})
}

func (s *Server) handleInstrumentQuote(w http.ResponseWriter, r *http.Request) {
	shares := int64(queryInt(r, "shares", 1, 1_000_000))
	side := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("side")))
	if side == "" {
		side = "buy"
	}
	quote, err := s.engine.QuoteTrade(r.Context(), strings.ToUpper(chi.URLParam(r, "symbol")), shares, side)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotFound):
			writeError(w, http.StatusNotFound, "unknown symbol")
		case errors.Is(err, engine.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func queryInt(r *http.Request, key string, fallback, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
